package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	godrv "github.com/go-sql-driver/mysql"

	"replydesk/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}

// isDuplicate reports a unique-constraint violation (MySQL error 1062), the
// storage-level backstop behind the one-response-per-review invariant.
func isDuplicate(err error) bool {
	var me *godrv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- reviews ----

func (r *Repo) GetReview(ctx context.Context, orgID, reviewID string) (domain.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx, getReviewSQL, reviewID, orgID))
}

func (r *Repo) ListReviews(ctx context.Context, orgID, locationID string, limit int) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, orgID, locationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*9)
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.ID,
			rv.LocationID,
			rv.OrgID,
			rv.Platform,
			rv.ExternalID,
			valStr(rv.Reviewer),
			valInt(rv.Rating),
			valStr(rv.Text),
			valTime(rv.ReviewDate),
		)
	}
	sqlStr := upsertReviewsPrefix + strings.Join(values, ",") + upsertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) MarkReviewResponded(ctx context.Context, reviewID string) error {
	_, err := r.db.ExecContext(ctx, markReviewRespondedSQL, reviewID)
	return err
}

// ---- responses ----

func (r *Repo) GetResponseByReview(ctx context.Context, orgID, reviewID string) (domain.Response, error) {
	return scanResponse(r.db.QueryRowContext(ctx, getResponseByReviewSQL, reviewID, orgID))
}

func (r *Repo) InsertResponse(ctx context.Context, rsp domain.Response) error {
	_, err := r.db.ExecContext(ctx, insertResponseSQL,
		rsp.ID, rsp.ReviewID, rsp.OrgID, rsp.GeneratedText, string(rsp.Status), rsp.TokensUsed)
	if isDuplicate(err) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *Repo) MarkResponsePublished(ctx context.Context, responseID, finalText string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, markResponsePublishedSQL, finalText, at, responseID)
	return err
}

func (r *Repo) PublishBundle(ctx context.Context, orgID, responseID string) (domain.PublishBundle, error) {
	row := r.db.QueryRowContext(ctx, publishBundleSQL, responseID, orgID)

	var (
		b domain.PublishBundle

		edited, final     sql.NullString
		publishedAt       sql.NullTime
		reviewer, text    sql.NullString
		rating            sql.NullInt64
		reviewDate        sql.NullTime
		reviewStatus      string
		responseStatus    string
		locVoiceProfileID sql.NullString
	)
	err := row.Scan(
		&b.Response.ID, &b.Response.ReviewID, &b.Response.OrgID, &b.Response.GeneratedText,
		&edited, &final, &responseStatus, &publishedAt, &b.Response.TokensUsed, &b.Response.CreatedAt,
		&b.Review.ID, &b.Review.LocationID, &b.Review.OrgID, &b.Review.Platform, &b.Review.ExternalID,
		&reviewer, &rating, &text, &reviewDate, &reviewStatus, &b.Review.HasResponse, &b.Review.CreatedAt,
		&b.Location.ID, &b.Location.OrgID, &b.Location.PlatformAccountID, &b.Location.PlatformLocationID,
		&b.Location.DisplayName, &locVoiceProfileID, &b.Location.Active, &b.Location.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.PublishBundle{}, domain.ErrNotFound
		}
		return domain.PublishBundle{}, err
	}

	b.Response.Status = domain.ResponseStatus(responseStatus)
	b.Response.EditedText = strPtr(edited)
	b.Response.FinalText = strPtr(final)
	b.Response.PublishedAt = timePtr(publishedAt)
	b.Review.Status = domain.ReviewStatus(reviewStatus)
	b.Review.Reviewer = strPtr(reviewer)
	b.Review.Rating = intPtr(rating)
	b.Review.Text = strPtr(text)
	b.Review.ReviewDate = timePtr(reviewDate)
	b.Location.VoiceProfileID = strPtr(locVoiceProfileID)
	return b, nil
}

// ---- locations & profiles ----

func (r *Repo) GetLocation(ctx context.Context, orgID, locationID string) (domain.Location, error) {
	return scanLocation(r.db.QueryRowContext(ctx, getLocationSQL, locationID, orgID))
}

func (r *Repo) ListActiveLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := r.db.QueryContext(ctx, listActiveLocationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) VoiceProfileForLocation(ctx context.Context, orgID, locationID string) (domain.VoiceProfile, error) {
	return scanVoiceProfile(r.db.QueryRowContext(ctx, voiceProfileForLocationSQL, locationID, orgID))
}

func (r *Repo) FirstVoiceProfileForOrg(ctx context.Context, orgID string) (domain.VoiceProfile, error) {
	return scanVoiceProfile(r.db.QueryRowContext(ctx, firstVoiceProfileForOrgSQL, orgID))
}

// ---- credentials ----

func (r *Repo) PlatformRefreshToken(ctx context.Context, orgID string) (string, error) {
	var tok string
	err := r.db.QueryRowContext(ctx, platformRefreshTokenSQL, orgID).Scan(&tok)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	return tok, err
}

func (r *Repo) OrgContactEmail(ctx context.Context, orgID string) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, orgContactEmailSQL, orgID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	return email, err
}

// ---- scanning ----

type rowScanner interface{ Scan(dest ...any) error }

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		rv         domain.Review
		reviewer   sql.NullString
		rating     sql.NullInt64
		text       sql.NullString
		reviewDate sql.NullTime
		status     string
	)
	err := row.Scan(&rv.ID, &rv.LocationID, &rv.OrgID, &rv.Platform, &rv.ExternalID,
		&reviewer, &rating, &text, &reviewDate, &status, &rv.HasResponse, &rv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	rv.Status = domain.ReviewStatus(status)
	rv.Reviewer = strPtr(reviewer)
	rv.Rating = intPtr(rating)
	rv.Text = strPtr(text)
	rv.ReviewDate = timePtr(reviewDate)
	return rv, nil
}

func scanResponse(row rowScanner) (domain.Response, error) {
	var (
		rsp           domain.Response
		edited, final sql.NullString
		publishedAt   sql.NullTime
		status        string
	)
	err := row.Scan(&rsp.ID, &rsp.ReviewID, &rsp.OrgID, &rsp.GeneratedText,
		&edited, &final, &status, &publishedAt, &rsp.TokensUsed, &rsp.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Response{}, domain.ErrNotFound
		}
		return domain.Response{}, err
	}
	rsp.Status = domain.ResponseStatus(status)
	rsp.EditedText = strPtr(edited)
	rsp.FinalText = strPtr(final)
	rsp.PublishedAt = timePtr(publishedAt)
	return rsp, nil
}

func scanLocation(row rowScanner) (domain.Location, error) {
	var (
		l              domain.Location
		voiceProfileID sql.NullString
	)
	err := row.Scan(&l.ID, &l.OrgID, &l.PlatformAccountID, &l.PlatformLocationID,
		&l.DisplayName, &voiceProfileID, &l.Active, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Location{}, domain.ErrNotFound
		}
		return domain.Location{}, err
	}
	l.VoiceProfileID = strPtr(voiceProfileID)
	return l, nil
}

func scanVoiceProfile(row rowScanner) (domain.VoiceProfile, error) {
	var (
		vp                             domain.VoiceProfile
		locationID                     sql.NullString
		personality, signOff           sql.NullString
		examples, preferred, forbidden []byte
	)
	err := row.Scan(&vp.ID, &vp.OrgID, &locationID, &vp.Tone, &personality, &signOff,
		&examples, &preferred, &forbidden, &vp.MaxWords, &vp.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.VoiceProfile{}, domain.ErrNotFound
		}
		return domain.VoiceProfile{}, err
	}
	vp.LocationID = strPtr(locationID)
	vp.Personality = strPtr(personality)
	vp.SignOff = strPtr(signOff)
	_ = json.Unmarshal(examples, &vp.Examples)
	_ = json.Unmarshal(preferred, &vp.PreferredWords)
	_ = json.Unmarshal(forbidden, &vp.ForbiddenWords)
	return vp, nil
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
