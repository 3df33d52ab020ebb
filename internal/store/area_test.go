package store

import "testing"

func TestAreaSeedData(t *testing.T) {
	db := newTestDB(t)
	store := NewAreaStore(db)

	areas, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(areas) != 5 {
		t.Fatalf("expected 5 seed areas, got %d", len(areas))
	}

	expected := []string{"Kitchen", "Bathroom", "Bedroom", "Yard", "General"}
	for i, name := range expected {
		if areas[i].Name != name {
			t.Errorf("area[%d].Name = %q, want %q", i, areas[i].Name, name)
		}
	}
}

func TestAreaCRUD(t *testing.T) {
	db := newTestDB(t)
	store := NewAreaStore(db)

	a, err := store.Create("Garage", 6)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Name != "Garage" || a.SortOrder != 6 {
		t.Errorf("created = %+v", a)
	}

	updated, err := store.Update(a.ID, "Workshop", 7)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Workshop" || updated.SortOrder != 7 {
		t.Errorf("updated = %+v", updated)
	}

	if err := store.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := store.GetByID(a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gone != nil {
		t.Error("area should be gone after delete")
	}
}
