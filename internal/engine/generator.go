package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/recurrence"
	"github.com/jmadden/hearth/internal/rotation"
	"github.com/jmadden/hearth/internal/store"
)

// Result summarizes one generation batch. Skipped counts definitions another
// overlapping invocation handled first; Failed counts definitions that hit a
// persistence error and remain due for the next invocation.
type Result struct {
	BatchID   string               `json:"batch_id"`
	Generated []model.TaskInstance `json:"instances"`
	Skipped   int                  `json:"skipped"`
	Failed    int                  `json:"failed"`
}

// GeneratedCount returns the number of newly materialized instances.
func (r Result) GeneratedCount() int {
	return len(r.Generated)
}

// Generator materializes task instances from due recurring-task definitions.
// It holds no state of its own and is safe to invoke from any trigger,
// concurrently; the store's conditional write keeps overlapping batches from
// double-generating.
type Generator struct {
	tasks  *store.RecurringTaskStore
	logger *slog.Logger
}

func NewGenerator(tasks *store.RecurringTaskStore, logger *slog.Logger) *Generator {
	return &Generator{tasks: tasks, logger: logger}
}

// GenerateDue materializes one pending TaskInstance for every active
// definition whose next occurrence is at or before now, advances each
// definition's schedule, and deactivates definitions whose end condition is
// reached. A failure on one definition is logged and counted, never aborts
// the batch.
func (g *Generator) GenerateDue(householdID int64, now time.Time) (Result, error) {
	due, err := g.tasks.ListDue(householdID, now)
	if err != nil {
		return Result{}, fmt.Errorf("list due definitions: %w", err)
	}

	res := Result{BatchID: uuid.NewString()}
	for _, def := range due {
		inst, ok, err := g.generateOne(def, now)
		if err != nil {
			g.logger.Error("generate instance", "task_id", def.ID, "title", def.Title, "error", err)
			res.Failed++
			continue
		}
		if !ok {
			res.Skipped++
			continue
		}
		res.Generated = append(res.Generated, *inst)
	}

	if res.GeneratedCount() > 0 || res.Skipped > 0 || res.Failed > 0 {
		g.logger.Info("generation batch",
			"household_id", householdID,
			"batch_id", res.BatchID,
			"generated", res.GeneratedCount(),
			"skipped", res.Skipped,
			"failed", res.Failed,
		)
	}
	return res, nil
}

func (g *Generator) generateOne(def model.RecurringTask, now time.Time) (*model.TaskInstance, bool, error) {
	rule, err := recurrence.Parse(def.RecurrenceRule)
	if err != nil {
		// Rules are validated at creation time; a bad one here means the row
		// was mangled outside the API. Surface it as a per-definition failure.
		return nil, false, fmt.Errorf("parse rule: %w", err)
	}

	assigneeIndex := def.CurrentAssigneeIndex
	assignedTo := def.AssignedTo
	if n := len(def.RotationAssignees); n > 0 {
		if assigneeIndex < 0 || assigneeIndex >= n {
			// The rotation list shrank since the cursor was written.
			assigneeIndex = 0
		}
		memberID := def.RotationAssignees[assigneeIndex]
		assignedTo = &memberID
		assigneeIndex = rotation.NextIndex(assigneeIndex, n)
	}

	snap := model.TaskInstance{
		RecurringTaskID:  &def.ID,
		HouseholdID:      def.HouseholdID,
		Title:            def.Title,
		Description:      def.Description,
		AreaID:           def.AreaID,
		Points:           def.Points,
		EstimatedMinutes: def.EstimatedMinutes,
		AssignedTo:       assignedTo,
		Status:           model.TaskPending,
		DueAt:            def.NextOccurrenceAt,
	}

	adv := store.Advance{
		TaskID:              def.ID,
		ExpectedOccurrences: def.TotalOccurrences,
		LastGeneratedAt:     now,
		AssigneeIndex:       assigneeIndex,
		Active:              true,
	}

	// Advance from the previous occurrence, not from now, so a late run
	// never drifts the schedule. The definition deactivates when the rule
	// has no further occurrence or this generation reaches COUNT; in either
	// case next_occurrence_at keeps its last valid value.
	next, ok := rule.Next(def.NextOccurrenceAt)
	if ok && (rule.Count == 0 || def.TotalOccurrences+1 < rule.Count) {
		adv.NextOccurrenceAt = &next
	} else {
		adv.Active = false
	}

	return g.tasks.AdvanceAndInsert(adv, snap)
}
