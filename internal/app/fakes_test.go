package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"replydesk/internal/domain"
)

// ---- shared fakes for the app layer ----

type publishMark struct {
	ResponseID string
	FinalText  string
	At         time.Time
}

type fakeStore struct {
	mu sync.Mutex

	reviews           map[string]domain.Review       // by review id
	responsesByReview map[string]domain.Response     // by review id
	locations         map[string]domain.Location     // by location id
	locationProfiles  map[string]domain.VoiceProfile // by location id
	orgProfiles       map[string]domain.VoiceProfile // by org id
	refreshTokens     map[string]string              // by org id
	contactEmails     map[string]string              // by org id

	locationProfileErr error // non-ErrNotFound failure for tier (a)
	orgProfileErr      error // non-ErrNotFound failure for tier (b)
	insertHook         func(domain.Response) error
	markPublishedErr   error
	markRespondedErr   error

	inserted  []domain.Response
	published []publishMark
	responded []string
	upserted  [][]domain.Review
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reviews:           map[string]domain.Review{},
		responsesByReview: map[string]domain.Response{},
		locations:         map[string]domain.Location{},
		locationProfiles:  map[string]domain.VoiceProfile{},
		orgProfiles:       map[string]domain.VoiceProfile{},
		refreshTokens:     map[string]string{},
		contactEmails:     map[string]string{},
	}
}

func (f *fakeStore) GetReview(ctx context.Context, orgID, reviewID string) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[reviewID]
	if !ok || rv.OrgID != orgID {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, nil
}

func (f *fakeStore) ListReviews(ctx context.Context, orgID, locationID string, limit int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, rv := range f.reviews {
		if rv.OrgID == orgID && rv.LocationID == locationID {
			out = append(out, rv)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, rs)
	return nil
}

func (f *fakeStore) MarkReviewResponded(ctx context.Context, reviewID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markRespondedErr != nil {
		return f.markRespondedErr
	}
	rv, ok := f.reviews[reviewID]
	if ok {
		rv.Status = domain.ReviewResponded
		rv.HasResponse = true
		f.reviews[reviewID] = rv
	}
	f.responded = append(f.responded, reviewID)
	return nil
}

func (f *fakeStore) GetResponseByReview(ctx context.Context, orgID, reviewID string) (domain.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rsp, ok := f.responsesByReview[reviewID]
	if !ok || rsp.OrgID != orgID {
		return domain.Response{}, domain.ErrNotFound
	}
	return rsp, nil
}

func (f *fakeStore) InsertResponse(ctx context.Context, rsp domain.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertHook != nil {
		if err := f.insertHook(rsp); err != nil {
			return err
		}
	}
	if _, exists := f.responsesByReview[rsp.ReviewID]; exists {
		return domain.ErrDuplicate
	}
	rsp.CreatedAt = time.Now()
	f.responsesByReview[rsp.ReviewID] = rsp
	f.inserted = append(f.inserted, rsp)
	return nil
}

func (f *fakeStore) MarkResponsePublished(ctx context.Context, responseID, finalText string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markPublishedErr != nil {
		return f.markPublishedErr
	}
	for reviewID, rsp := range f.responsesByReview {
		if rsp.ID == responseID {
			rsp.Status = domain.ResponsePublished
			rsp.FinalText = &finalText
			rsp.PublishedAt = &at
			f.responsesByReview[reviewID] = rsp
		}
	}
	f.published = append(f.published, publishMark{ResponseID: responseID, FinalText: finalText, At: at})
	return nil
}

func (f *fakeStore) PublishBundle(ctx context.Context, orgID, responseID string) (domain.PublishBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for reviewID, rsp := range f.responsesByReview {
		if rsp.ID != responseID || rsp.OrgID != orgID {
			continue
		}
		rv := f.reviews[reviewID]
		loc := f.locations[rv.LocationID]
		return domain.PublishBundle{Response: rsp, Review: rv, Location: loc}, nil
	}
	return domain.PublishBundle{}, domain.ErrNotFound
}

func (f *fakeStore) GetLocation(ctx context.Context, orgID, locationID string) (domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.locations[locationID]
	if !ok || loc.OrgID != orgID {
		return domain.Location{}, domain.ErrNotFound
	}
	return loc, nil
}

func (f *fakeStore) ListActiveLocations(ctx context.Context) ([]domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Location
	for _, loc := range f.locations {
		if loc.Active {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (f *fakeStore) VoiceProfileForLocation(ctx context.Context, orgID, locationID string) (domain.VoiceProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locationProfileErr != nil {
		return domain.VoiceProfile{}, f.locationProfileErr
	}
	vp, ok := f.locationProfiles[locationID]
	if !ok || vp.OrgID != orgID {
		return domain.VoiceProfile{}, domain.ErrNotFound
	}
	return vp, nil
}

func (f *fakeStore) FirstVoiceProfileForOrg(ctx context.Context, orgID string) (domain.VoiceProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orgProfileErr != nil {
		return domain.VoiceProfile{}, f.orgProfileErr
	}
	vp, ok := f.orgProfiles[orgID]
	if !ok {
		return domain.VoiceProfile{}, domain.ErrNotFound
	}
	return vp, nil
}

func (f *fakeStore) PlatformRefreshToken(ctx context.Context, orgID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.refreshTokens[orgID]
	if !ok || tok == "" {
		return "", domain.ErrNotFound
	}
	return tok, nil
}

func (f *fakeStore) OrgContactEmail(ctx context.Context, orgID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.contactEmails[orgID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return email, nil
}

// ---- AI ----

type fakeAI struct {
	mu         sync.Mutex
	calls      int
	completion domain.Completion
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeAI) Complete(ctx context.Context, system, user string) (domain.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return f.completion, nil
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ---- platform ----

type replyCall struct {
	Token string
	Path  string
	Text  string
}

type fakePlatform struct {
	mu          sync.Mutex
	accessToken string
	exchangeErr error
	replyErr    error
	pages       map[string]domain.PlatformReviewsPage // keyed by pageToken ("" = first)
	listErr     error

	exchanges int
	replies   []replyCall
}

func (f *fakePlatform) ExchangeToken(ctx context.Context, refreshToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges++
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return f.accessToken, nil
}

func (f *fakePlatform) ListAccounts(ctx context.Context, accessToken string) ([]domain.PlatformAccount, error) {
	return nil, nil
}

func (f *fakePlatform) ListLocations(ctx context.Context, accessToken, accountID string) ([]domain.PlatformLocation, error) {
	return nil, nil
}

func (f *fakePlatform) ListReviews(ctx context.Context, accessToken, accountID, locationID, pageToken string, pageSize int) (domain.PlatformReviewsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return domain.PlatformReviewsPage{}, f.listErr
	}
	return f.pages[pageToken], nil
}

func (f *fakePlatform) ReplyToReview(ctx context.Context, accessToken, reviewPath, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, replyCall{Token: accessToken, Path: reviewPath, Text: text})
	return nil
}

// ---- cache ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, _ := json.Marshal(v)
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

// ---- tiny helpers ----

func ptr[T any](v T) *T { return &v }
