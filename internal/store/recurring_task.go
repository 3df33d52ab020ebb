package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmadden/hearth/internal/model"
)

type RecurringTaskStore struct {
	db *sql.DB
}

func NewRecurringTaskStore(db *sql.DB) *RecurringTaskStore {
	return &RecurringTaskStore{db: db}
}

const recurringTaskCols = `id, household_id, title, description, area_id, points, estimated_minutes, recurrence_rule, assigned_to, current_assignee_index, is_active, next_occurrence_at, last_generated_at, total_occurrences, created_at, updated_at`

func scanRecurringTask(scanner interface{ Scan(...any) error }) (*model.RecurringTask, error) {
	var t model.RecurringTask
	var areaID, assignedTo sql.NullInt64
	var lastGenerated sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description, &areaID, &t.Points,
		&t.EstimatedMinutes, &t.RecurrenceRule, &assignedTo, &t.CurrentAssigneeIndex,
		&t.IsActive, &t.NextOccurrenceAt, &lastGenerated, &t.TotalOccurrences,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if areaID.Valid {
		t.AreaID = &areaID.Int64
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.Int64
	}
	if lastGenerated.Valid {
		lg := lastGenerated.Time
		t.LastGeneratedAt = &lg
	}
	return &t, nil
}

func (s *RecurringTaskStore) Create(t model.RecurringTask, assignees []int64) (*model.RecurringTask, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO recurring_tasks (household_id, title, description, area_id, points, estimated_minutes, recurrence_rule, assigned_to, next_occurrence_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.HouseholdID, t.Title, t.Description, nullInt64(t.AreaID), t.Points,
		t.EstimatedMinutes, t.RecurrenceRule, nullInt64(t.AssignedTo),
		t.NextOccurrenceAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert recurring task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceAssignees(tx, id, assignees); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func (s *RecurringTaskStore) GetByID(id int64) (*model.RecurringTask, error) {
	row := s.db.QueryRow(`SELECT `+recurringTaskCols+` FROM recurring_tasks WHERE id = ?`, id)
	t, err := scanRecurringTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring task: %w", err)
	}
	if t.RotationAssignees, err = s.RotationAssignees(id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *RecurringTaskStore) List(householdID int64) ([]model.RecurringTask, error) {
	rows, err := s.db.Query(
		`SELECT `+recurringTaskCols+` FROM recurring_tasks WHERE household_id = ? ORDER BY title, id`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}
	return s.attachAssignees(tasks)
}

// ListDue returns the household's active definitions whose next occurrence is
// at or before now. This predicate is the sole due-ness test.
func (s *RecurringTaskStore) ListDue(householdID int64, now time.Time) ([]model.RecurringTask, error) {
	rows, err := s.db.Query(
		`SELECT `+recurringTaskCols+` FROM recurring_tasks
		 WHERE household_id = ? AND is_active = 1 AND next_occurrence_at <= ?
		 ORDER BY next_occurrence_at, id`,
		householdID, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}
	return s.attachAssignees(tasks)
}

func collectTasks(rows *sql.Rows) ([]model.RecurringTask, error) {
	var tasks []model.RecurringTask
	for rows.Next() {
		t, err := scanRecurringTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *RecurringTaskStore) attachAssignees(tasks []model.RecurringTask) ([]model.RecurringTask, error) {
	for i := range tasks {
		assignees, err := s.RotationAssignees(tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].RotationAssignees = assignees
	}
	return tasks, nil
}

// RotationAssignees returns the task's ordered rotation list.
func (s *RecurringTaskStore) RotationAssignees(taskID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT member_id FROM rotation_assignees WHERE recurring_task_id = ? ORDER BY position`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rotation assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update replaces the definition's template fields, rule, and rotation list.
// The caller recomputes schedule state when the rule changes; existing task
// instances are never touched.
func (s *RecurringTaskStore) Update(t model.RecurringTask, assignees []int64) (*model.RecurringTask, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE recurring_tasks
		 SET title = ?, description = ?, area_id = ?, points = ?, estimated_minutes = ?,
		     recurrence_rule = ?, assigned_to = ?, current_assignee_index = ?,
		     is_active = ?, next_occurrence_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.Title, t.Description, nullInt64(t.AreaID), t.Points, t.EstimatedMinutes,
		t.RecurrenceRule, nullInt64(t.AssignedTo), t.CurrentAssigneeIndex,
		t.IsActive, t.NextOccurrenceAt.UTC(), t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update recurring task: %w", err)
	}

	if err := replaceAssignees(tx, t.ID, assignees); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(t.ID)
}

func (s *RecurringTaskStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE recurring_tasks SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// Delete removes the definition. Already-generated instances keep living on
// their own; the schema nulls their back-reference.
func (s *RecurringTaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM recurring_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring task: %w", err)
	}
	return nil
}

// Advance describes one generation step: the schedule fields to write and the
// occurrence count the definition must still be at for the write to apply.
type Advance struct {
	TaskID              int64
	ExpectedOccurrences int
	// NextOccurrenceAt is nil when the schedule is exhausted; the column then
	// keeps its last valid value and is no longer consulted.
	NextOccurrenceAt *time.Time
	LastGeneratedAt  time.Time
	AssigneeIndex    int
	Active           bool
}

// AdvanceAndInsert commits one generation cycle: the conditional schedule
// advance and the task-instance insert succeed or fail together. The guard
// on total_occurrences is the compare-and-swap that makes overlapping
// invocations safe; a loser observes zero affected rows and returns
// ok=false without inserting anything.
func (s *RecurringTaskStore) AdvanceAndInsert(adv Advance, snap model.TaskInstance) (*model.TaskInstance, bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var next any
	if adv.NextOccurrenceAt != nil {
		next = adv.NextOccurrenceAt.UTC()
	}

	result, err := tx.Exec(
		`UPDATE recurring_tasks
		 SET next_occurrence_at = COALESCE(?, next_occurrence_at),
		     last_generated_at = ?,
		     total_occurrences = total_occurrences + 1,
		     current_assignee_index = ?,
		     is_active = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND total_occurrences = ? AND is_active = 1`,
		next, adv.LastGeneratedAt.UTC(), adv.AssigneeIndex, adv.Active,
		adv.TaskID, adv.ExpectedOccurrences,
	)
	if err != nil {
		return nil, false, fmt.Errorf("advance schedule: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Another invocation already handled this cycle.
		return nil, false, nil
	}

	insert, err := tx.Exec(
		`INSERT INTO task_instances (recurring_task_id, household_id, title, description, area_id, points, estimated_minutes, assigned_to, status, due_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(snap.RecurringTaskID), snap.HouseholdID, snap.Title, snap.Description,
		nullInt64(snap.AreaID), snap.Points, snap.EstimatedMinutes,
		nullInt64(snap.AssignedTo), string(model.TaskPending), snap.DueAt.UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert task instance: %w", err)
	}
	instanceID, err := insert.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+taskInstanceCols+` FROM task_instances WHERE id = ?`, instanceID)
	inst, err := scanTaskInstance(row)
	if err != nil {
		return nil, false, fmt.Errorf("read generated instance: %w", err)
	}
	return inst, true, nil
}

// replaceAssignees rewrites the rotation list, deduplicating while keeping
// first-occurrence order.
func replaceAssignees(tx *sql.Tx, taskID int64, assignees []int64) error {
	if _, err := tx.Exec(`DELETE FROM rotation_assignees WHERE recurring_task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clear rotation assignees: %w", err)
	}

	seen := make(map[int64]bool, len(assignees))
	position := 0
	for _, memberID := range assignees {
		if seen[memberID] {
			continue
		}
		seen[memberID] = true
		if _, err := tx.Exec(
			`INSERT INTO rotation_assignees (recurring_task_id, member_id, position) VALUES (?, ?, ?)`,
			taskID, memberID, position,
		); err != nil {
			return fmt.Errorf("insert rotation assignee: %w", err)
		}
		position++
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
