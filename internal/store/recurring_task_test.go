package store

import (
	"testing"
	"time"

	"github.com/jmadden/hearth/internal/model"
)

func TestRecurringTaskCreateDedupesAssignees(t *testing.T) {
	db := newTestDB(t)
	h := createHousehold(t, db, "Madden House")
	a := createMember(t, db, h.ID, "Alice", model.RoleAdult)
	b := createMember(t, db, h.ID, "Bob", model.RoleAdult)

	nextAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", nextAt,
		[]int64{a.ID, b.ID, a.ID})

	if len(task.RotationAssignees) != 2 {
		t.Fatalf("assignees = %v, want 2 entries", task.RotationAssignees)
	}
	if task.RotationAssignees[0] != a.ID || task.RotationAssignees[1] != b.ID {
		t.Errorf("assignees = %v, want [%d %d] keeping first-occurrence order",
			task.RotationAssignees, a.ID, b.ID)
	}
}

func TestListDueBoundary(t *testing.T) {
	db := newTestDB(t)
	store := NewRecurringTaskStore(db)
	h := createHousehold(t, db, "Madden House")

	dueAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	due := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", dueAt, nil)
	createRecurringTask(t, db, h.ID, "Laundry", "FREQ=DAILY", dueAt.Add(time.Hour), nil)

	// Exactly at the occurrence instant is due.
	got, err := store.ListDue(h.ID, dueAt)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("ListDue at boundary = %v, want just %d", got, due.ID)
	}

	// One second earlier, nothing is due.
	got, err = store.ListDue(h.ID, dueAt.Add(-time.Second))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListDue before boundary = %d tasks, want 0", len(got))
	}

	// An hour later both are due.
	got, err = store.ListDue(h.ID, dueAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListDue after both = %d tasks, want 2", len(got))
	}
}

func TestListDueSkipsInactive(t *testing.T) {
	db := newTestDB(t)
	store := NewRecurringTaskStore(db)
	h := createHousehold(t, db, "Madden House")

	dueAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", dueAt, nil)

	if err := store.SetActive(task.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err := store.ListDue(h.ID, dueAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("inactive task should not be due, got %d", len(got))
	}
}

func TestAdvanceAndInsert(t *testing.T) {
	db := newTestDB(t)
	store := NewRecurringTaskStore(db)
	h := createHousehold(t, db, "Madden House")
	a := createMember(t, db, h.ID, "Alice", model.RoleAdult)

	dueAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", dueAt, []int64{a.ID})

	next := dueAt.AddDate(0, 0, 1)
	now := dueAt.Add(time.Minute)
	inst, ok, err := store.AdvanceAndInsert(Advance{
		TaskID:              task.ID,
		ExpectedOccurrences: 0,
		NextOccurrenceAt:    &next,
		LastGeneratedAt:     now,
		AssigneeIndex:       0,
		Active:              true,
	}, model.TaskInstance{
		RecurringTaskID: &task.ID,
		HouseholdID:     h.ID,
		Title:           task.Title,
		Points:          task.Points,
		AssignedTo:      &a.ID,
		DueAt:           dueAt,
	})
	if err != nil {
		t.Fatalf("AdvanceAndInsert: %v", err)
	}
	if !ok {
		t.Fatal("expected the advance to win")
	}
	if inst.Status != model.TaskPending {
		t.Errorf("instance status = %q", inst.Status)
	}
	if inst.AssignedTo == nil || *inst.AssignedTo != a.ID {
		t.Errorf("instance assignee = %v, want %d", inst.AssignedTo, a.ID)
	}

	reloaded, err := store.GetByID(task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.TotalOccurrences != 1 {
		t.Errorf("TotalOccurrences = %d, want 1", reloaded.TotalOccurrences)
	}
	if !reloaded.NextOccurrenceAt.Equal(next) {
		t.Errorf("NextOccurrenceAt = %v, want %v", reloaded.NextOccurrenceAt, next)
	}
	if reloaded.LastGeneratedAt == nil || !reloaded.LastGeneratedAt.Equal(now) {
		t.Errorf("LastGeneratedAt = %v, want %v", reloaded.LastGeneratedAt, now)
	}
}

func TestAdvanceAndInsertStaleLoses(t *testing.T) {
	db := newTestDB(t)
	store := NewRecurringTaskStore(db)
	instances := NewTaskInstanceStore(db)
	h := createHousehold(t, db, "Madden House")

	dueAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", dueAt, nil)

	next := dueAt.AddDate(0, 0, 1)
	adv := Advance{
		TaskID:              task.ID,
		ExpectedOccurrences: 0,
		NextOccurrenceAt:    &next,
		LastGeneratedAt:     dueAt,
		Active:              true,
	}
	snap := model.TaskInstance{
		RecurringTaskID: &task.ID,
		HouseholdID:     h.ID,
		Title:           task.Title,
		DueAt:           dueAt,
	}

	if _, ok, err := store.AdvanceAndInsert(adv, snap); err != nil || !ok {
		t.Fatalf("first advance: ok=%v err=%v", ok, err)
	}

	// Same expected occurrence count again: a concurrent invocation that read
	// the definition before the first write. It must lose and insert nothing.
	inst, ok, err := store.AdvanceAndInsert(adv, snap)
	if err != nil {
		t.Fatalf("stale advance: %v", err)
	}
	if ok || inst != nil {
		t.Error("stale advance should lose without inserting")
	}

	generated, err := instances.ListByDefinition(task.ID)
	if err != nil {
		t.Fatalf("ListByDefinition: %v", err)
	}
	if len(generated) != 1 {
		t.Errorf("got %d instances, want 1", len(generated))
	}
}

func TestAdvanceExhaustsSchedule(t *testing.T) {
	db := newTestDB(t)
	store := NewRecurringTaskStore(db)
	h := createHousehold(t, db, "Madden House")

	dueAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY;COUNT=1", dueAt, nil)

	// Final occurrence: no next instant, definition deactivates, and the
	// next_occurrence_at column keeps its last valid value.
	_, ok, err := store.AdvanceAndInsert(Advance{
		TaskID:              task.ID,
		ExpectedOccurrences: 0,
		NextOccurrenceAt:    nil,
		LastGeneratedAt:     dueAt,
		Active:              false,
	}, model.TaskInstance{
		RecurringTaskID: &task.ID,
		HouseholdID:     h.ID,
		Title:           task.Title,
		DueAt:           dueAt,
	})
	if err != nil || !ok {
		t.Fatalf("advance: ok=%v err=%v", ok, err)
	}

	reloaded, err := store.GetByID(task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.IsActive {
		t.Error("exhausted definition should be inactive")
	}
	if !reloaded.NextOccurrenceAt.Equal(dueAt) {
		t.Errorf("NextOccurrenceAt = %v, want unchanged %v", reloaded.NextOccurrenceAt, dueAt)
	}

	// A further advance fails the is_active guard.
	_, ok, err = store.AdvanceAndInsert(Advance{
		TaskID:              task.ID,
		ExpectedOccurrences: 1,
		LastGeneratedAt:     dueAt,
		Active:              false,
	}, model.TaskInstance{HouseholdID: h.ID, Title: task.Title, DueAt: dueAt})
	if err != nil {
		t.Fatalf("advance inactive: %v", err)
	}
	if ok {
		t.Error("advancing an inactive definition should lose")
	}
}

func TestDeleteDefinitionKeepsInstances(t *testing.T) {
	db := newTestDB(t)
	store := NewRecurringTaskStore(db)
	instances := NewTaskInstanceStore(db)
	h := createHousehold(t, db, "Madden House")

	dueAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", dueAt, nil)

	next := dueAt.AddDate(0, 0, 1)
	inst, ok, err := store.AdvanceAndInsert(Advance{
		TaskID:              task.ID,
		ExpectedOccurrences: 0,
		NextOccurrenceAt:    &next,
		LastGeneratedAt:     dueAt,
		Active:              true,
	}, model.TaskInstance{
		RecurringTaskID: &task.ID,
		HouseholdID:     h.ID,
		Title:           task.Title,
		DueAt:           dueAt,
	})
	if err != nil || !ok {
		t.Fatalf("advance: ok=%v err=%v", ok, err)
	}

	if err := store.Delete(task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	survivor, err := instances.GetByID(inst.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if survivor == nil {
		t.Fatal("generated instance should outlive its definition")
	}
	if survivor.RecurringTaskID != nil {
		t.Errorf("back-reference = %v, want nulled", survivor.RecurringTaskID)
	}
}
