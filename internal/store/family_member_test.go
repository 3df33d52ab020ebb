package store

import (
	"testing"

	"github.com/jmadden/hearth/internal/model"
)

func TestFamilyMemberSortOrderAssignment(t *testing.T) {
	db := newTestDB(t)
	h := createHousehold(t, db, "Madden House")

	a := createMember(t, db, h.ID, "Alice", model.RoleAdult)
	b := createMember(t, db, h.ID, "Bob", model.RoleChild)

	if a.SortOrder != 0 {
		t.Errorf("first member sort order = %d, want 0", a.SortOrder)
	}
	if b.SortOrder != 1 {
		t.Errorf("second member sort order = %d, want 1", b.SortOrder)
	}
}

func TestFamilyMemberUpdateSortOrder(t *testing.T) {
	db := newTestDB(t)
	h := createHousehold(t, db, "Madden House")
	store := NewFamilyMemberStore(db)

	a := createMember(t, db, h.ID, "Alice", model.RoleAdult)
	b := createMember(t, db, h.ID, "Bob", model.RoleAdult)
	c := createMember(t, db, h.ID, "Carol", model.RoleAdult)

	if err := store.UpdateSortOrder([]int64{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("UpdateSortOrder: %v", err)
	}

	members, err := store.List(h.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := []string{members[0].Name, members[1].Name, members[2].Name}
	want := []string{"Carol", "Alice", "Bob"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestListEligibleExcludesPets(t *testing.T) {
	db := newTestDB(t)
	h := createHousehold(t, db, "Madden House")
	store := NewFamilyMemberStore(db)

	createMember(t, db, h.ID, "Alice", model.RoleAdult)
	createMember(t, db, h.ID, "Bob", model.RoleChild)
	createMember(t, db, h.ID, "Rex", model.RolePet)

	eligible, err := store.ListEligible(h.ID)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("got %d eligible members, want 2", len(eligible))
	}
	for _, m := range eligible {
		if m.Role == model.RolePet {
			t.Errorf("pet %s should not be eligible", m.Name)
		}
	}
}

func TestFamilyMemberPINLifecycle(t *testing.T) {
	db := newTestDB(t)
	h := createHousehold(t, db, "Madden House")
	store := NewFamilyMemberStore(db)
	m := createMember(t, db, h.ID, "Alice", model.RoleAdult)

	if m.HasPIN {
		t.Error("new member should not have a PIN")
	}

	if err := store.SetPIN(m.ID, "hashed-pin-value"); err != nil {
		t.Fatalf("SetPIN: %v", err)
	}

	got, err := store.GetPINHash(m.ID)
	if err != nil {
		t.Fatalf("GetPINHash: %v", err)
	}
	if got != "hashed-pin-value" {
		t.Errorf("pin hash = %q", got)
	}

	reloaded, err := store.GetByID(m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !reloaded.HasPIN {
		t.Error("HasPIN should be true after SetPIN")
	}

	if err := store.ClearPIN(m.ID); err != nil {
		t.Fatalf("ClearPIN: %v", err)
	}
	got, err = store.GetPINHash(m.ID)
	if err != nil {
		t.Fatalf("GetPINHash after clear: %v", err)
	}
	if got != "" {
		t.Errorf("pin hash after clear = %q, want empty", got)
	}
}

func TestIncrementTimesCaptain(t *testing.T) {
	db := newTestDB(t)
	h := createHousehold(t, db, "Madden House")
	store := NewFamilyMemberStore(db)
	m := createMember(t, db, h.ID, "Alice", model.RoleAdult)

	if err := store.IncrementTimesCaptain(m.ID); err != nil {
		t.Fatalf("IncrementTimesCaptain: %v", err)
	}
	if err := store.IncrementTimesCaptain(m.ID); err != nil {
		t.Fatalf("IncrementTimesCaptain: %v", err)
	}

	reloaded, err := store.GetByID(m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.TimesCaptain != 2 {
		t.Errorf("TimesCaptain = %d, want 2", reloaded.TimesCaptain)
	}
}

func TestAddRating(t *testing.T) {
	db := newTestDB(t)
	h := createHousehold(t, db, "Madden House")
	store := NewFamilyMemberStore(db)
	m := createMember(t, db, h.ID, "Alice", model.RoleAdult)

	if err := store.AddRating(m.ID, 5); err != nil {
		t.Fatalf("AddRating: %v", err)
	}
	if err := store.AddRating(m.ID, 3); err != nil {
		t.Fatalf("AddRating: %v", err)
	}

	reloaded, err := store.GetByID(m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.RatingCount != 2 || reloaded.RatingSum != 8 {
		t.Errorf("rating aggregate = %d/%d, want 2/8", reloaded.RatingCount, reloaded.RatingSum)
	}
	if avg := reloaded.LifetimeRatingAverage(); avg != 4.0 {
		t.Errorf("LifetimeRatingAverage = %v, want 4.0", avg)
	}
}
