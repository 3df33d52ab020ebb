package model

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// TaskInstance is one concrete unit of work materialized from a
// RecurringTask. Template fields are snapshotted at generation time;
// editing the definition afterwards never changes existing instances.
type TaskInstance struct {
	ID               int64      `json:"id"`
	RecurringTaskID  *int64     `json:"recurring_task_id"`
	HouseholdID      int64      `json:"household_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	AreaID           *int64     `json:"area_id"`
	Points           int        `json:"points"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	AssignedTo       *int64     `json:"assigned_to"`
	Status           TaskStatus `json:"status"`
	DueAt            time.Time  `json:"due_at"`
	CompletedBy      *int64     `json:"completed_by"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}
