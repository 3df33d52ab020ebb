package store

import (
	"strings"
	"testing"
	"time"

	"github.com/jmadden/hearth/internal/model"
)

func TestHouseholdCRUD(t *testing.T) {
	db := newTestDB(t)
	store := NewHouseholdStore(db)

	h, err := store.Create("Madden House")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.Name != "Madden House" {
		t.Errorf("name = %q", h.Name)
	}
	if h.Captain.MemberID != nil {
		t.Error("new household should have no captain")
	}

	renamed, err := store.UpdateName(h.ID, "The Maddens")
	if err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	if renamed.Name != "The Maddens" {
		t.Errorf("renamed = %q", renamed.Name)
	}

	if err := store.Delete(h.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := store.GetByID(h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gone != nil {
		t.Error("household should be gone after delete")
	}
}

func TestConditionalUpdateCaptain(t *testing.T) {
	db := newTestDB(t)
	store := NewHouseholdStore(db)
	h := createHousehold(t, db, "Madden House")
	m := createMember(t, db, h.ID, "Alice", model.RoleAdult)

	startedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	endsAt := startedAt.Add(7 * 24 * time.Hour)

	// First install from the empty state succeeds.
	ok, err := store.ConditionalUpdateCaptain(h.ID, h.Captain, m.ID, startedAt, endsAt)
	if err != nil {
		t.Fatalf("ConditionalUpdateCaptain: %v", err)
	}
	if !ok {
		t.Fatal("expected first captain install to win")
	}

	reloaded, err := store.GetByID(h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Captain.MemberID == nil || *reloaded.Captain.MemberID != m.ID {
		t.Fatalf("captain = %v, want member %d", reloaded.Captain.MemberID, m.ID)
	}
	if reloaded.Captain.EndsAt == nil || !reloaded.Captain.EndsAt.Equal(endsAt) {
		t.Errorf("ends at = %v, want %v", reloaded.Captain.EndsAt, endsAt)
	}

	// A second writer still holding the stale empty state loses.
	ok, err = store.ConditionalUpdateCaptain(h.ID, h.Captain, m.ID, startedAt.Add(time.Hour), endsAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("ConditionalUpdateCaptain stale: %v", err)
	}
	if ok {
		t.Error("stale expected state should lose the compare-and-swap")
	}

	// A writer holding the current state wins.
	ok, err = store.ConditionalUpdateCaptain(h.ID, reloaded.Captain, m.ID, endsAt, endsAt.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("ConditionalUpdateCaptain current: %v", err)
	}
	if !ok {
		t.Error("current expected state should win")
	}
}

func TestRotationResetsTermRatings(t *testing.T) {
	db := newTestDB(t)
	store := NewHouseholdStore(db)
	h := createHousehold(t, db, "Madden House")
	m := createMember(t, db, h.ID, "Alice", model.RoleAdult)

	startedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	endsAt := startedAt.Add(7 * 24 * time.Hour)
	if _, err := store.ConditionalUpdateCaptain(h.ID, h.Captain, m.ID, startedAt, endsAt); err != nil {
		t.Fatalf("install captain: %v", err)
	}

	if err := store.RateCaptain(h.ID, 5); err != nil {
		t.Fatalf("RateCaptain: %v", err)
	}
	if err := store.RateCaptain(h.ID, 3); err != nil {
		t.Fatalf("RateCaptain: %v", err)
	}

	rated, err := store.GetByID(h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rated.Captain.RatingCount != 2 || rated.Captain.RatingSum != 8 {
		t.Fatalf("term ratings = %d/%d, want 2/8", rated.Captain.RatingCount, rated.Captain.RatingSum)
	}
	if avg := rated.Captain.RatingAverage(); avg != 4.0 {
		t.Errorf("RatingAverage = %v, want 4.0", avg)
	}

	// Installing the next term zeroes the aggregate.
	ok, err := store.ConditionalUpdateCaptain(h.ID, rated.Captain, m.ID, endsAt, endsAt.Add(7*24*time.Hour))
	if err != nil || !ok {
		t.Fatalf("rotate: ok=%v err=%v", ok, err)
	}
	next, err := store.GetByID(h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if next.Captain.RatingCount != 0 || next.Captain.RatingSum != 0 {
		t.Errorf("ratings after rotation = %d/%d, want 0/0", next.Captain.RatingCount, next.Captain.RatingSum)
	}
}

func TestRateCaptainWithoutCaptain(t *testing.T) {
	db := newTestDB(t)
	store := NewHouseholdStore(db)
	h := createHousehold(t, db, "Madden House")

	err := store.RateCaptain(h.ID, 4)
	if err == nil {
		t.Fatal("expected error rating a household with no captain")
	}
	if !strings.Contains(err.Error(), "no captain") {
		t.Errorf("err = %v", err)
	}
}
