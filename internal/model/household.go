package model

import "time"

type Household struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Captain   CaptainState `json:"captain"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CaptainState holds the household's current captain term. The rating
// aggregate covers the current term only and is reset on rotation.
type CaptainState struct {
	MemberID    *int64     `json:"member_id"`
	StartedAt   *time.Time `json:"started_at"`
	EndsAt      *time.Time `json:"ends_at"`
	RatingCount int        `json:"rating_count"`
	RatingSum   int        `json:"rating_sum"`
}

// RatingAverage returns the current term's average rating, or 0 when unrated.
func (c CaptainState) RatingAverage() float64 {
	if c.RatingCount == 0 {
		return 0
	}
	return float64(c.RatingSum) / float64(c.RatingCount)
}
