package app

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"replydesk/internal/adapters/observability"
	"replydesk/internal/domain"
)

// ResponderService drafts an AI reply for a review. Generate is idempotent:
// the first caller creates the draft, every later call (and the loser of a
// concurrent race) gets the stored row back and the AI service is never
// called twice for one review.
type ResponderService struct {
	store    domain.Store
	ai       domain.AIClient
	resolver *Resolver
	est      *TokenEstimator
}

func NewResponderService(store domain.Store, ai domain.AIClient, resolver *Resolver, est *TokenEstimator) *ResponderService {
	return &ResponderService{store: store, ai: ai, resolver: resolver, est: est}
}

func (s *ResponderService) Generate(ctx context.Context, orgID, reviewID string) (domain.Response, error) {
	rv, err := s.store.GetReview(ctx, orgID, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// absent and foreign-owned are indistinguishable on purpose
			return domain.Response{}, domain.E(domain.KindNotFound, "review not found", err)
		}
		return domain.Response{}, domain.E(domain.KindStorage, "loading review failed", err)
	}

	if existing, err := s.store.GetResponseByReview(ctx, orgID, reviewID); err == nil {
		observability.ObserveGeneration("reused")
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Response{}, domain.E(domain.KindStorage, "checking for existing response failed", err)
	}

	if rv.Text == nil || strings.TrimSpace(*rv.Text) == "" {
		observability.ObserveGeneration("error")
		return domain.Response{}, domain.E(domain.KindValidation, "review has no text to respond to", nil)
	}

	loc, err := s.store.GetLocation(ctx, orgID, rv.LocationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Response{}, domain.E(domain.KindNotFound, "location not found", err)
		}
		return domain.Response{}, domain.E(domain.KindStorage, "loading location failed", err)
	}

	vp := s.resolver.Resolve(ctx, orgID, rv.LocationID)
	contactEmail, err := s.store.OrgContactEmail(ctx, orgID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("org", orgID).Msg("contact email lookup failed, prompting without it")
	}

	system := BuildSystemPrompt(loc.DisplayName, contactEmail, vp)
	user := BuildUserPrompt(rv)
	log.Debug().
		Str("review", reviewID).
		Str("voice_profile", vp.ID).
		Int("prompt_tokens_est", s.est.Count(system)+s.est.Count(user)).
		Msg("generating draft")

	completion, err := s.ai.Complete(ctx, system, user)
	if err != nil {
		observability.ObserveGeneration("error")
		return domain.Response{}, err
	}

	rsp := domain.Response{
		ID:            uuid.NewString(),
		ReviewID:      reviewID,
		OrgID:         orgID,
		GeneratedText: completion.Text,
		Status:        domain.ResponseDraft,
		TokensUsed:    completion.TokensUsed,
	}
	if err := s.store.InsertResponse(ctx, rsp); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// a concurrent generate won the insert; its row is the response
			winner, rerr := s.store.GetResponseByReview(ctx, orgID, reviewID)
			if rerr != nil {
				return domain.Response{}, domain.E(domain.KindStorage, "re-reading response after duplicate insert failed", rerr)
			}
			observability.ObserveGeneration("reused")
			return winner, nil
		}
		observability.ObserveGeneration("error")
		return domain.Response{}, domain.E(domain.KindStorage, "storing response failed", err)
	}

	observability.ObserveGeneration("created")
	log.Info().Str("review", reviewID).Str("response", rsp.ID).Int("tokens", rsp.TokensUsed).Msg("draft created")
	return rsp, nil
}
