package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"replydesk/internal/domain"
)

// SyncService pulls reviews from the platform into the local store, one
// location at a time. It never touches review workflow state: status and
// has_response of already-known reviews survive re-sync.
type SyncService struct {
	store    domain.Store
	platform domain.ReviewPlatform
	cache    domain.Cache
	pageSize int
}

func NewSyncService(store domain.Store, platform domain.ReviewPlatform, cache domain.Cache, pageSize int) *SyncService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &SyncService{store: store, platform: platform, cache: cache, pageSize: pageSize}
}

func (s *SyncService) SyncLocation(ctx context.Context, loc domain.Location) error {
	refreshToken, err := s.store.PlatformRefreshToken(ctx, loc.OrgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// org never connected the platform; skip quietly and move on
			log.Info().Str("location", loc.ID).Str("org", loc.OrgID).Msg("sync skipped, platform not connected")
			return nil
		}
		return err
	}
	accessToken, err := s.platform.ExchangeToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	pageToken := ""
	total := 0
	for {
		page, err := s.platform.ListReviews(ctx, accessToken, loc.PlatformAccountID, loc.PlatformLocationID, pageToken, s.pageSize)
		if err != nil {
			switch domain.KindOf(err) {
			case domain.KindNotFound, domain.KindUpstreamConfig:
				// location gone remotely or access revoked: tolerate, skip
				log.Warn().Err(err).Str("location", loc.ID).Msg("sync skipped for location")
				return nil
			default:
				return err
			}
		}

		if len(page.Items) > 0 {
			if err := s.store.UpsertReviews(ctx, mapPlatformReviews(loc, page.Items)); err != nil {
				return fmt.Errorf("upsert reviews for %s failed: %w", loc.ID, err)
			}
			total += len(page.Items)
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if s.cache != nil {
		s.invalidateReviewLists(ctx, loc)
	}
	log.Info().Str("location", loc.ID).Int("reviews", total).Msg("sync ok")
	return nil
}

func mapPlatformReviews(loc domain.Location, items []domain.PlatformReview) []domain.Review {
	out := make([]domain.Review, 0, len(items))
	for _, pr := range items {
		rv := domain.Review{
			ID:         uuid.NewString(), // ignored on duplicate (location_id, external_id)
			LocationID: loc.ID,
			OrgID:      loc.OrgID,
			Platform:   "google",
			ExternalID: pr.ExternalID,
			Status:     domain.ReviewPending,
		}
		if pr.Reviewer != "" {
			name := pr.Reviewer
			rv.Reviewer = &name
		}
		if pr.Rating > 0 {
			rating := pr.Rating
			rv.Rating = &rating
		}
		if pr.Comment != "" {
			text := pr.Comment
			rv.Text = &text
		}
		if !pr.CreateTime.IsZero() {
			created := pr.CreateTime
			rv.ReviewDate = &created
		}
		out = append(out, rv)
	}
	return out
}

// invalidate the most common review list cache variants
func (s *SyncService) invalidateReviewLists(ctx context.Context, loc domain.Location) {
	for _, lim := range []int{50, 100, 200} {
		_ = s.cache.Del(ctx, fmt.Sprintf("reviews:%s:%s:%d", loc.OrgID, loc.ID, lim))
	}
}
