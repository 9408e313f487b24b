package domain

import (
	"context"
	"time"
)

type Store interface {
	// Reviews
	GetReview(ctx context.Context, orgID, reviewID string) (Review, error)
	ListReviews(ctx context.Context, orgID, locationID string, limit int) ([]Review, error)
	UpsertReviews(ctx context.Context, rs []Review) error
	MarkReviewResponded(ctx context.Context, reviewID string) error

	// Responses
	GetResponseByReview(ctx context.Context, orgID, reviewID string) (Response, error)
	InsertResponse(ctx context.Context, rsp Response) error
	MarkResponsePublished(ctx context.Context, responseID, finalText string, at time.Time) error
	PublishBundle(ctx context.Context, orgID, responseID string) (PublishBundle, error)

	// Locations & profiles
	GetLocation(ctx context.Context, orgID, locationID string) (Location, error)
	ListActiveLocations(ctx context.Context) ([]Location, error)
	VoiceProfileForLocation(ctx context.Context, orgID, locationID string) (VoiceProfile, error)
	FirstVoiceProfileForOrg(ctx context.Context, orgID string) (VoiceProfile, error)

	// Credentials (users table). ErrNotFound when no token is stored.
	PlatformRefreshToken(ctx context.Context, orgID string) (string, error)
	OrgContactEmail(ctx context.Context, orgID string) (string, error)
}

// PublishBundle is the joined read the publisher starts from.
type PublishBundle struct {
	Response Response
	Review   Review
	Location Location
}

type Completion struct {
	Text       string
	TokensUsed int // 0 means usage was not reported
}

// AIClient is the text-generation service. Implementations bound latency and
// classify failures into the upstream error kinds.
type AIClient interface {
	Complete(ctx context.Context, system, user string) (Completion, error)
}

type PlatformReview struct {
	ExternalID string
	Reviewer   string
	Rating     int
	Comment    string
	CreateTime time.Time
	HasReply   bool
}

type PlatformReviewsPage struct {
	Items         []PlatformReview
	NextPageToken string
}

type PlatformAccount struct {
	ID   string
	Name string
}

type PlatformLocation struct {
	ID   string
	Name string
}

// ReviewPlatform is the remote review site (OAuth-style token exchange plus
// authenticated list/reply calls).
type ReviewPlatform interface {
	ExchangeToken(ctx context.Context, refreshToken string) (string, error)
	ListAccounts(ctx context.Context, accessToken string) ([]PlatformAccount, error)
	ListLocations(ctx context.Context, accessToken, accountID string) ([]PlatformLocation, error)
	ListReviews(ctx context.Context, accessToken, accountID, locationID, pageToken string, pageSize int) (PlatformReviewsPage, error)
	ReplyToReview(ctx context.Context, accessToken, reviewPath, text string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
