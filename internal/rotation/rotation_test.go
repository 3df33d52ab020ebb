package rotation

import (
	"errors"
	"testing"

	"github.com/jmadden/hearth/internal/model"
)

func member(id int64, name string, timesCaptain int) model.FamilyMember {
	return model.FamilyMember{ID: id, Name: name, TimesCaptain: timesCaptain}
}

func TestSelectNextPicksSmallestKey(t *testing.T) {
	eligible := []model.FamilyMember{
		member(1, "Alice", 2),
		member(2, "Bob", 0),
		member(3, "Carol", 1),
	}

	got, err := SelectNext(eligible, func(m model.FamilyMember) int { return m.TimesCaptain })
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if got.ID != 2 {
		t.Errorf("picked member %d (%s), want Bob", got.ID, got.Name)
	}
}

func TestSelectNextTieBreaksByOrder(t *testing.T) {
	eligible := []model.FamilyMember{
		member(5, "Dana", 1),
		member(6, "Evan", 1),
		member(7, "Fay", 1),
	}

	got, err := SelectNext(eligible, func(m model.FamilyMember) int { return m.TimesCaptain })
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if got.ID != 5 {
		t.Errorf("tie should go to the first in order, got member %d", got.ID)
	}
}

func TestSelectNextEmpty(t *testing.T) {
	_, err := SelectNext(nil, func(m model.FamilyMember) int { return 0 })
	if !errors.Is(err, ErrNoEligibleMembers) {
		t.Errorf("err = %v, want ErrNoEligibleMembers", err)
	}
}

func TestNextIndex(t *testing.T) {
	tests := []struct {
		current, size, want int
	}{
		{0, 3, 1},
		{1, 3, 2},
		{2, 3, 0}, // wraps
		{0, 1, 0},
		{5, 0, 0}, // empty list
	}

	for _, tt := range tests {
		if got := NextIndex(tt.current, tt.size); got != tt.want {
			t.Errorf("NextIndex(%d, %d) = %d, want %d", tt.current, tt.size, got, tt.want)
		}
	}
}
