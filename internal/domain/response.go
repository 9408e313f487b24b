package domain

import "time"

type ResponseStatus string

const (
	ResponseDraft     ResponseStatus = "draft"
	ResponsePublished ResponseStatus = "published"
	// ResponseFailed is a reserved status: nothing in this pipeline writes it.
	// Publish failures are reported to the caller and the row stays draft.
	ResponseFailed ResponseStatus = "failed"
)

// Response is the AI-drafted reply for a review. At most one row exists per
// review; the responses.review_id unique key is the backstop.
type Response struct {
	ID            string
	ReviewID      string
	OrgID         string
	GeneratedText string
	EditedText    *string
	FinalText     *string
	Status        ResponseStatus
	PublishedAt   *time.Time
	TokensUsed    int
	CreatedAt     time.Time
}

// FinalCandidate picks the text a publish would send: the explicit override
// when given, else the human edit, else the generated draft. Empty means
// there is nothing publishable.
func (r Response) FinalCandidate(override string) string {
	if override != "" {
		return override
	}
	if r.EditedText != nil && *r.EditedText != "" {
		return *r.EditedText
	}
	return r.GeneratedText
}
