package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/store"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	db := newTestDB(t)
	households := store.NewHouseholdStore(db)
	gen := NewGenerator(store.NewRecurringTaskStore(db), testLogger())
	captain := NewCaptain(households, store.NewFamilyMemberStore(db), testLogger())
	return NewScheduler(gen, captain, households, testLogger())
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestScheduler(t)
	s.Start(context.Background())
	s.Stop()
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := newTestScheduler(t)
	s.Stop() // must not panic or block
}

func TestSchedulerStopTwice(t *testing.T) {
	s := newTestScheduler(t)
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}

// A single tick over a fresh household generates the due task and installs
// the first captain, firing both callbacks.
func TestSchedulerTick(t *testing.T) {
	db := newTestDB(t)
	households := store.NewHouseholdStore(db)
	gen := NewGenerator(store.NewRecurringTaskStore(db), testLogger())
	captain := NewCaptain(households, store.NewFamilyMemberStore(db), testLogger())
	s := NewScheduler(gen, captain, households, testLogger())

	h := createHousehold(t, db, "Madden House")
	m := createMember(t, db, h.ID, "Alice", "adult")
	createRecurringTask(t, db, h.ID, "Dishes", "FREQ=DAILY",
		time.Now().UTC().Add(-time.Hour), nil)

	var batches []Result
	var rotated []model.CaptainState
	s.OnBatch = func(householdID int64, res Result) {
		if householdID == h.ID {
			batches = append(batches, res)
		}
	}
	s.OnRotate = func(householdID int64, state model.CaptainState) {
		if householdID == h.ID {
			rotated = append(rotated, state)
		}
	}

	s.tick()

	if len(batches) != 1 || batches[0].GeneratedCount() != 1 {
		t.Fatalf("batches = %+v, want one batch with one instance", batches)
	}
	if len(rotated) != 1 {
		t.Fatalf("rotations = %d, want 1", len(rotated))
	}
	if rotated[0].MemberID == nil || *rotated[0].MemberID != m.ID {
		t.Errorf("captain = %v, want %d", rotated[0].MemberID, m.ID)
	}

	// The next tick has nothing new to report.
	batches, rotated = nil, nil
	s.tick()
	if len(batches) != 0 {
		t.Errorf("second tick produced %d batches", len(batches))
	}
	if len(rotated) != 0 {
		t.Errorf("second tick produced %d rotations", len(rotated))
	}
}

// A household whose only resident is a pet never gets a captain, and the
// tick treats that as normal.
func TestSchedulerTickPetOnlyHousehold(t *testing.T) {
	db := newTestDB(t)
	households := store.NewHouseholdStore(db)
	gen := NewGenerator(store.NewRecurringTaskStore(db), testLogger())
	captain := NewCaptain(households, store.NewFamilyMemberStore(db), testLogger())
	s := NewScheduler(gen, captain, households, testLogger())

	h := createHousehold(t, db, "Kennel")
	createMember(t, db, h.ID, "Rex", "pet")

	rotations := 0
	s.OnRotate = func(int64, model.CaptainState) { rotations++ }

	s.tick()

	if rotations != 0 {
		t.Errorf("rotations = %d, want 0", rotations)
	}
	reloaded, err := households.GetByID(h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Captain.MemberID != nil {
		t.Error("pet-only household should have no captain")
	}
}
