package mysql

const getReviewSQL = `
SELECT id, location_id, org_id, platform, external_id, reviewer_name, rating,
       ` + "`text`" + `, review_date, status, has_response, created_at
FROM reviews
WHERE id = ? AND org_id = ?
`

const listReviewsSQL = `
SELECT id, location_id, org_id, platform, external_id, reviewer_name, rating,
       ` + "`text`" + `, review_date, status, has_response, created_at
FROM reviews
WHERE org_id = ? AND location_id = ?
ORDER BY review_date DESC, id DESC
LIMIT ?
`

// Keyed on (location_id, external_id). Sync must never clobber local workflow
// state, so status/has_response are left alone on update.
const upsertReviewsPrefix = "INSERT INTO reviews\n" +
	"  (id, location_id, org_id, platform, external_id, reviewer_name, rating, `text`, review_date)\nVALUES "

const upsertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  reviewer_name = COALESCE(VALUES(reviewer_name), reviews.reviewer_name),\n" +
	"  rating        = COALESCE(VALUES(rating), reviews.rating),\n" +
	"  `text`        = COALESCE(VALUES(`text`), reviews.`text`),\n" +
	"  review_date   = COALESCE(VALUES(review_date), reviews.review_date)\n"

const markReviewRespondedSQL = `
UPDATE reviews SET status = 'responded', has_response = 1 WHERE id = ?
`

const getResponseByReviewSQL = `
SELECT id, review_id, org_id, generated_text, edited_text, final_text, status,
       published_at, tokens_used, created_at
FROM responses
WHERE review_id = ? AND org_id = ?
`

const insertResponseSQL = `
INSERT INTO responses (id, review_id, org_id, generated_text, status, tokens_used)
VALUES (?, ?, ?, ?, ?, ?)
`

// Idempotent: re-running with the same arguments is a no-op state-wise, which
// makes the post-publish reconcile safe to repeat by hand.
const markResponsePublishedSQL = `
UPDATE responses
SET status = 'published', final_text = ?, published_at = ?
WHERE id = ?
`

const publishBundleSQL = `
SELECT
  rsp.id, rsp.review_id, rsp.org_id, rsp.generated_text, rsp.edited_text,
  rsp.final_text, rsp.status, rsp.published_at, rsp.tokens_used, rsp.created_at,
  rv.id, rv.location_id, rv.org_id, rv.platform, rv.external_id, rv.reviewer_name,
  rv.rating, rv.` + "`text`" + `, rv.review_date, rv.status, rv.has_response, rv.created_at,
  l.id, l.org_id, l.platform_account_id, l.platform_location_id, l.display_name,
  l.voice_profile_id, l.active, l.created_at
FROM responses rsp
JOIN reviews rv ON rv.id = rsp.review_id
JOIN locations l ON l.id = rv.location_id
WHERE rsp.id = ? AND rsp.org_id = ?
`

const getLocationSQL = `
SELECT id, org_id, platform_account_id, platform_location_id, display_name,
       voice_profile_id, active, created_at
FROM locations
WHERE id = ? AND org_id = ?
`

const listActiveLocationsSQL = `
SELECT id, org_id, platform_account_id, platform_location_id, display_name,
       voice_profile_id, active, created_at
FROM locations
WHERE active = 1
ORDER BY created_at, id
`

const voiceProfileForLocationSQL = `
SELECT vp.id, vp.org_id, vp.location_id, vp.tone, vp.personality, vp.sign_off,
       vp.examples, vp.preferred_words, vp.forbidden_words, vp.max_words, vp.created_at
FROM locations l
JOIN voice_profiles vp ON vp.id = l.voice_profile_id
WHERE l.id = ? AND l.org_id = ?
`

const firstVoiceProfileForOrgSQL = `
SELECT id, org_id, location_id, tone, personality, sign_off,
       examples, preferred_words, forbidden_words, max_words, created_at
FROM voice_profiles
WHERE org_id = ?
ORDER BY created_at, id
LIMIT 1
`

const platformRefreshTokenSQL = `
SELECT platform_refresh_token
FROM users
WHERE org_id = ? AND platform_refresh_token IS NOT NULL AND platform_refresh_token <> ''
ORDER BY created_at, id
LIMIT 1
`

const orgContactEmailSQL = `
SELECT email
FROM users
WHERE org_id = ?
ORDER BY created_at, id
LIMIT 1
`
