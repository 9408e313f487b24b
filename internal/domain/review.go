package domain

import "time"

type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewResponded ReviewStatus = "responded"
	ReviewIgnored   ReviewStatus = "ignored"
)

type Review struct {
	ID          string
	LocationID  string
	OrgID       string
	Platform    string
	ExternalID  string // platform-assigned review identifier
	Reviewer    *string
	Rating      *int // 0..5
	Text        *string
	ReviewDate  *time.Time
	Status      ReviewStatus
	HasResponse bool
	CreatedAt   time.Time
}
