package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"replydesk/internal/adapters/observability"
	"replydesk/internal/domain"
)

// PublishService pushes an approved response to the review platform and then
// reconciles local state. The remote reply is the authoritative side effect:
// local writes happen only after it succeeds, and if they fail the error is
// logged for manual repair rather than rolled back (there is no unpublish).
type PublishService struct {
	store    domain.Store
	platform domain.ReviewPlatform
	now      func() time.Time
}

func NewPublishService(store domain.Store, platform domain.ReviewPlatform) *PublishService {
	return &PublishService{store: store, platform: platform, now: time.Now}
}

func (s *PublishService) Publish(ctx context.Context, orgID, responseID, overrideText string) error {
	b, err := s.store.PublishBundle(ctx, orgID, responseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.E(domain.KindNotFound, "response not found", err)
		}
		return domain.E(domain.KindStorage, "loading response failed", err)
	}

	finalText := strings.TrimSpace(b.Response.FinalCandidate(overrideText))
	if finalText == "" {
		return domain.E(domain.KindValidation, "no response text to publish", nil)
	}

	refreshToken, err := s.store.PlatformRefreshToken(ctx, orgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// a setup problem, not a transient one: the caller should prompt
			// the user to reconnect the platform account, not retry
			return domain.E(domain.KindNotConnected, "review platform is not connected", err)
		}
		return domain.E(domain.KindStorage, "loading platform credential failed", err)
	}
	accessToken, err := s.platform.ExchangeToken(ctx, refreshToken)
	if err != nil {
		observability.ObservePublish("error")
		return err
	}

	reviewPath := fmt.Sprintf("accounts/%s/locations/%s/reviews/%s",
		b.Location.PlatformAccountID, b.Location.PlatformLocationID, b.Review.ExternalID)

	if err := s.platform.ReplyToReview(ctx, accessToken, reviewPath, finalText); err != nil {
		// no local state was touched; the response stays draft and may be
		// retried indefinitely
		observability.ObservePublish("error")
		return err
	}

	publishedAt := s.now().UTC()
	if err := s.store.MarkResponsePublished(ctx, responseID, finalText, publishedAt); err != nil {
		log.Error().Err(err).
			Str("response", responseID).
			Str("review", b.Review.ID).
			Msg("reply published remotely but marking response failed; re-run MarkResponsePublished manually")
	}
	if err := s.store.MarkReviewResponded(ctx, b.Review.ID); err != nil {
		log.Error().Err(err).
			Str("response", responseID).
			Str("review", b.Review.ID).
			Msg("reply published remotely but marking review failed; re-run MarkReviewResponded manually")
	}

	observability.ObservePublish("ok")
	log.Info().Str("response", responseID).Str("review", b.Review.ID).Msg("reply published")
	return nil
}
