package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"replydesk/internal/domain"
)

// Resolver picks the voice profile governing a reply. Resolution order, first
// match wins: the profile linked to the location, then any profile owned by
// the organization (oldest first), then the injected fallback. Transient
// store failures at the first two tiers log and fall through; the fallback
// is a constant and cannot fail. The resolver never creates or mutates
// profiles.
type Resolver struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
	fallback domain.VoiceProfile
}

func NewResolver(store domain.Store, cache domain.Cache, ttl time.Duration, fallback domain.VoiceProfile) *Resolver {
	return &Resolver{store: store, cache: cache, cacheTTL: ttl, fallback: fallback}
}

func (r *Resolver) Resolve(ctx context.Context, orgID, locationID string) domain.VoiceProfile {
	key := fmt.Sprintf("voice:%s:%s", orgID, locationID)
	if r.cache != nil {
		var vp domain.VoiceProfile
		if ok, _ := r.cache.Get(ctx, key, &vp); ok {
			return vp
		}
	}

	vp, err := r.store.VoiceProfileForLocation(ctx, orgID, locationID)
	if err == nil {
		r.remember(ctx, key, vp)
		return vp
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("org", orgID).Str("location", locationID).
			Msg("location voice profile lookup failed, falling through")
	}

	vp, err = r.store.FirstVoiceProfileForOrg(ctx, orgID)
	if err == nil {
		r.remember(ctx, key, vp)
		return vp
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("org", orgID).
			Msg("org voice profile lookup failed, falling through")
	}

	// fallback is deliberately not cached: a profile created later should
	// take effect on the next resolve
	return r.fallback
}

func (r *Resolver) remember(ctx context.Context, key string, vp domain.VoiceProfile) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Set(ctx, key, vp, r.cacheTTL)
}
