package domain

import "time"

// VoiceProfile conditions generated text for one organization or location.
// Treated as a read-only snapshot during a generation call.
type VoiceProfile struct {
	ID             string
	OrgID          string
	LocationID     *string // set when the profile is pinned to one location
	Tone           string
	Personality    *string
	SignOff        *string
	Examples       []string
	PreferredWords []string
	ForbiddenWords []string
	MaxWords       int
	CreatedAt      time.Time
}

// DefaultVoiceProfile returns the built-in fallback used when neither the
// location nor the organization has a profile. Returned fresh each call so
// no two resolvers share a mutable value.
func DefaultVoiceProfile() VoiceProfile {
	return VoiceProfile{
		ID:       "default",
		Tone:     "friendly",
		MaxWords: 150,
	}
}
