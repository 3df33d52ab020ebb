package model

import "time"

const (
	RoleAdult = "adult"
	RoleChild = "child"
	RolePet   = "pet"
)

type FamilyMember struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	AvatarEmoji string    `json:"avatar_emoji"`
	Role        string    `json:"role"`
	HasPIN      bool      `json:"has_pin"`
	SortOrder   int       `json:"sort_order"`
	// Lifetime captain history; monotonically accumulated, never reset.
	TimesCaptain int `json:"times_captain"`
	RatingCount  int `json:"rating_count"`
	RatingSum    int `json:"rating_sum"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Eligible reports whether the member can hold the captain role or a
// rotation slot. Pets appear on the board but never get assigned work.
func (m FamilyMember) Eligible() bool {
	return m.Role != RolePet
}

// LifetimeRatingAverage returns the member's all-time captain rating average.
func (m FamilyMember) LifetimeRatingAverage() float64 {
	if m.RatingCount == 0 {
		return 0
	}
	return float64(m.RatingSum) / float64(m.RatingCount)
}
