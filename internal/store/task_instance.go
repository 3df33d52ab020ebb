package store

import (
	"database/sql"
	"fmt"

	"github.com/jmadden/hearth/internal/model"
)

type TaskInstanceStore struct {
	db *sql.DB
}

func NewTaskInstanceStore(db *sql.DB) *TaskInstanceStore {
	return &TaskInstanceStore{db: db}
}

const taskInstanceCols = `id, recurring_task_id, household_id, title, description, area_id, points, estimated_minutes, assigned_to, status, due_at, completed_by, completed_at, created_at`

func scanTaskInstance(scanner interface{ Scan(...any) error }) (*model.TaskInstance, error) {
	var t model.TaskInstance
	var recurringTaskID, areaID, assignedTo, completedBy sql.NullInt64
	var completedAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &recurringTaskID, &t.HouseholdID, &t.Title, &t.Description,
		&areaID, &t.Points, &t.EstimatedMinutes, &assignedTo, &t.Status,
		&t.DueAt, &completedBy, &completedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if recurringTaskID.Valid {
		t.RecurringTaskID = &recurringTaskID.Int64
	}
	if areaID.Valid {
		t.AreaID = &areaID.Int64
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.Int64
	}
	if completedBy.Valid {
		t.CompletedBy = &completedBy.Int64
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return &t, nil
}

// Create inserts a one-off task instance that has no originating definition.
func (s *TaskInstanceStore) Create(t model.TaskInstance) (*model.TaskInstance, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_instances (recurring_task_id, household_id, title, description, area_id, points, estimated_minutes, assigned_to, status, due_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(t.RecurringTaskID), t.HouseholdID, t.Title, t.Description,
		nullInt64(t.AreaID), t.Points, t.EstimatedMinutes,
		nullInt64(t.AssignedTo), string(model.TaskPending), t.DueAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task instance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskInstanceStore) GetByID(id int64) (*model.TaskInstance, error) {
	row := s.db.QueryRow(`SELECT `+taskInstanceCols+` FROM task_instances WHERE id = ?`, id)
	t, err := scanTaskInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task instance: %w", err)
	}
	return t, nil
}

// List returns the household's instances, optionally filtered by status.
func (s *TaskInstanceStore) List(householdID int64, status model.TaskStatus) ([]model.TaskInstance, error) {
	query := `SELECT ` + taskInstanceCols + ` FROM task_instances WHERE household_id = ?`
	args := []any{householdID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY due_at, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list task instances: %w", err)
	}
	defer rows.Close()

	var instances []model.TaskInstance
	for rows.Next() {
		t, err := scanTaskInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task instance: %w", err)
		}
		instances = append(instances, *t)
	}
	return instances, rows.Err()
}

// ListByDefinition returns every instance a definition ever generated, newest
// first. Deleting the definition leaves these rows in place with a nulled
// back-reference, so this is only meaningful while the definition exists.
func (s *TaskInstanceStore) ListByDefinition(recurringTaskID int64) ([]model.TaskInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+taskInstanceCols+` FROM task_instances WHERE recurring_task_id = ? ORDER BY due_at DESC, id DESC`,
		recurringTaskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances by definition: %w", err)
	}
	defer rows.Close()

	var instances []model.TaskInstance
	for rows.Next() {
		t, err := scanTaskInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task instance: %w", err)
		}
		instances = append(instances, *t)
	}
	return instances, rows.Err()
}

func (s *TaskInstanceStore) Complete(id int64, completedBy *int64) (*model.TaskInstance, error) {
	_, err := s.db.Exec(
		`UPDATE task_instances SET status = ?, completed_by = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(model.TaskCompleted), nullInt64(completedBy), id,
	)
	if err != nil {
		return nil, fmt.Errorf("complete task instance: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskInstanceStore) Reopen(id int64) (*model.TaskInstance, error) {
	_, err := s.db.Exec(
		`UPDATE task_instances SET status = ?, completed_by = NULL, completed_at = NULL WHERE id = ?`,
		string(model.TaskPending), id,
	)
	if err != nil {
		return nil, fmt.Errorf("reopen task instance: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskInstanceStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM task_instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task instance: %w", err)
	}
	return nil
}
