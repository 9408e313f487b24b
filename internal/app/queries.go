package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"replydesk/internal/domain"
)

// QueryService serves the read paths the UI needs, cache-aside over Redis.
type QueryService struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(store domain.Store, cache domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: store, cache: cache, cacheTTL: ttl}
}

func (s *QueryService) ListReviews(ctx context.Context, orgID, locationID string, limit int) ([]domain.Review, error) {
	key := fmt.Sprintf("reviews:%s:%s:%d", orgID, locationID, limit)
	var cached []domain.Review
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	rs, err := s.store.ListReviews(ctx, orgID, locationID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.E(domain.KindNotFound, "location not found", err)
		}
		return nil, domain.E(domain.KindStorage, "listing reviews failed", err)
	}

	// copy before caching so callers can't mutate the cached slice
	cp := make([]domain.Review, len(rs))
	copy(cp, rs)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, cp, s.cacheTTL)
	}
	return rs, nil
}
