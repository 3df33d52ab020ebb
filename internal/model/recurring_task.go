package model

import "time"

type Area struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecurringTask is a persisted template plus schedule state that periodically
// spawns TaskInstances. TotalOccurrences doubles as the version for the
// conditional schedule advance: it only ever grows, once per generation.
type RecurringTask struct {
	ID               int64   `json:"id"`
	HouseholdID      int64   `json:"household_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	AreaID           *int64  `json:"area_id"`
	Points           int     `json:"points"`
	EstimatedMinutes int     `json:"estimated_minutes"`
	RecurrenceRule   string  `json:"recurrence_rule"`
	AssignedTo       *int64  `json:"assigned_to"`
	// RotationAssignees is loaded from the rotation_assignees table; empty
	// means the fixed AssignedTo (possibly nil) is used for every instance.
	RotationAssignees    []int64    `json:"rotation_assignees,omitempty"`
	CurrentAssigneeIndex int        `json:"current_assignee_index"`
	IsActive             bool       `json:"is_active"`
	NextOccurrenceAt     time.Time  `json:"next_occurrence_at"`
	LastGeneratedAt      *time.Time `json:"last_generated_at"`
	TotalOccurrences     int        `json:"total_occurrences"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
