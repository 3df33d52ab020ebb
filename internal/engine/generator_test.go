package engine

import (
	"testing"
	"time"

	"github.com/jmadden/hearth/internal/store"
)

func TestGenerateDueIdempotent(t *testing.T) {
	db := newTestDB(t)
	gen := NewGenerator(store.NewRecurringTaskStore(db), testLogger())
	h := createHousehold(t, db, "Madden House")

	anchor := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", anchor, nil)

	now := anchor.Add(5 * time.Minute)
	res, err := gen.GenerateDue(h.ID, now)
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if res.GeneratedCount() != 1 {
		t.Fatalf("first run generated %d, want 1", res.GeneratedCount())
	}
	if res.BatchID == "" {
		t.Error("batch id should be set")
	}

	// The schedule advanced past now, so a second run finds nothing due.
	res, err = gen.GenerateDue(h.ID, now)
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if res.GeneratedCount() != 0 || res.Skipped != 0 || res.Failed != 0 {
		t.Errorf("second run = %d/%d/%d, want all zero",
			res.GeneratedCount(), res.Skipped, res.Failed)
	}
}

func TestGenerateAdvancesFromOccurrence(t *testing.T) {
	db := newTestDB(t)
	tasks := store.NewRecurringTaskStore(db)
	gen := NewGenerator(tasks, testLogger())
	h := createHousehold(t, db, "Madden House")

	// Anchored Monday at 09:00, due on Wednesdays.
	anchor := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Bins out", "FREQ=WEEKLY;BYDAY=WE", anchor, nil)

	// The run happens a day late. The instance is due at the missed
	// occurrence and the schedule advances from that occurrence, not from
	// the run time, so lateness never drifts the pattern.
	res, err := gen.GenerateDue(h.ID, anchor.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if res.GeneratedCount() != 1 {
		t.Fatalf("generated %d, want 1", res.GeneratedCount())
	}
	if !res.Generated[0].DueAt.Equal(anchor) {
		t.Errorf("instance due at %v, want %v", res.Generated[0].DueAt, anchor)
	}

	reloaded, err := tasks.GetByID(task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	wantNext := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC) // Wednesday
	if !reloaded.NextOccurrenceAt.Equal(wantNext) {
		t.Errorf("NextOccurrenceAt = %v, want %v", reloaded.NextOccurrenceAt, wantNext)
	}
}

func TestGenerateCountLifecycle(t *testing.T) {
	db := newTestDB(t)
	tasks := store.NewRecurringTaskStore(db)
	instances := store.NewTaskInstanceStore(db)
	gen := NewGenerator(tasks, testLogger())
	h := createHousehold(t, db, "Madden House")

	anchor := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Water plants", "FREQ=DAILY;COUNT=3", anchor, nil)

	for day := 0; day < 3; day++ {
		now := anchor.AddDate(0, 0, day).Add(time.Minute)
		res, err := gen.GenerateDue(h.ID, now)
		if err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
		if res.GeneratedCount() != 1 {
			t.Fatalf("day %d generated %d, want 1", day, res.GeneratedCount())
		}
	}

	reloaded, err := tasks.GetByID(task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.IsActive {
		t.Error("definition should deactivate when COUNT is reached")
	}
	if reloaded.TotalOccurrences != 3 {
		t.Errorf("TotalOccurrences = %d, want 3", reloaded.TotalOccurrences)
	}

	// Nothing more ever comes out of it.
	res, err := gen.GenerateDue(h.ID, anchor.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if res.GeneratedCount() != 0 {
		t.Errorf("exhausted definition generated %d", res.GeneratedCount())
	}

	all, err := instances.ListByDefinition(task.ID)
	if err != nil {
		t.Fatalf("ListByDefinition: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("lifetime instances = %d, want exactly 3", len(all))
	}
}

func TestGenerateRotatesAssignees(t *testing.T) {
	db := newTestDB(t)
	gen := NewGenerator(store.NewRecurringTaskStore(db), testLogger())
	h := createHousehold(t, db, "Madden House")
	a := createMember(t, db, h.ID, "Alice", "adult")
	b := createMember(t, db, h.ID, "Bob", "child")
	c := createMember(t, db, h.ID, "Carol", "adult")

	anchor := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", anchor, []int64{a.ID, b.ID, c.ID})

	want := []int64{a.ID, b.ID, c.ID, a.ID} // wraps after the third
	for day, wantID := range want {
		now := anchor.AddDate(0, 0, day).Add(time.Minute)
		res, err := gen.GenerateDue(h.ID, now)
		if err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
		if res.GeneratedCount() != 1 {
			t.Fatalf("day %d generated %d, want 1", day, res.GeneratedCount())
		}
		got := res.Generated[0].AssignedTo
		if got == nil || *got != wantID {
			t.Errorf("day %d assigned to %v, want %d", day, got, wantID)
		}
	}
}

func TestGenerateResetsStaleRotationCursor(t *testing.T) {
	db := newTestDB(t)
	tasks := store.NewRecurringTaskStore(db)
	gen := NewGenerator(tasks, testLogger())
	h := createHousehold(t, db, "Madden House")
	a := createMember(t, db, h.ID, "Alice", "adult")
	b := createMember(t, db, h.ID, "Bob", "adult")

	anchor := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", anchor, []int64{a.ID, b.ID})

	// The cursor points past the end of a shrunken rotation list.
	if _, err := db.Exec(`UPDATE recurring_tasks SET current_assignee_index = 5 WHERE id = ?`, task.ID); err != nil {
		t.Fatalf("corrupt cursor: %v", err)
	}

	res, err := gen.GenerateDue(h.ID, anchor.Add(time.Minute))
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if res.GeneratedCount() != 1 {
		t.Fatalf("generated %d, want 1", res.GeneratedCount())
	}
	if got := res.Generated[0].AssignedTo; got == nil || *got != a.ID {
		t.Errorf("assigned to %v, want cursor reset to %d", got, a.ID)
	}
}

func TestGenerateBadRuleCountsAsFailure(t *testing.T) {
	db := newTestDB(t)
	gen := NewGenerator(store.NewRecurringTaskStore(db), testLogger())
	h := createHousehold(t, db, "Madden House")

	anchor := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	good := createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY", anchor, nil)
	bad := createRecurringTask(t, db, h.ID, "Laundry", "FREQ=DAILY", anchor, nil)

	// Mangle the stored rule behind the API's back.
	if _, err := db.Exec(`UPDATE recurring_tasks SET recurrence_rule = 'FREQ=NEVER' WHERE id = ?`, bad.ID); err != nil {
		t.Fatalf("corrupt rule: %v", err)
	}

	res, err := gen.GenerateDue(h.ID, anchor.Add(time.Minute))
	if err != nil {
		t.Fatalf("GenerateDue: %v", err)
	}
	if res.GeneratedCount() != 1 {
		t.Errorf("generated %d, want 1 from the healthy definition", res.GeneratedCount())
	}
	if res.Failed != 1 {
		t.Errorf("failed = %d, want 1", res.Failed)
	}
	if got := res.Generated[0].RecurringTaskID; got == nil || *got != good.ID {
		t.Errorf("generated from definition %v, want %d", got, good.ID)
	}
}
