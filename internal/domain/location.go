package domain

import "time"

type Location struct {
	ID                 string
	OrgID              string
	PlatformAccountID  string
	PlatformLocationID string
	DisplayName        string
	VoiceProfileID     *string
	Active             bool
	CreatedAt          time.Time
}
