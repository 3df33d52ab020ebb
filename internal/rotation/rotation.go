package rotation

import (
	"errors"

	"github.com/jmadden/hearth/internal/model"
)

// ErrNoEligibleMembers is returned when a selection is requested over an
// empty eligible set. Callers surface it as a recoverable condition ("add a
// member before enabling rotation"), never retry it automatically.
var ErrNoEligibleMembers = errors.New("no eligible members")

// SelectNext returns the eligible member with the smallest fairness key.
// Ties break by input order, so database order is the stable tiebreaker.
func SelectNext(eligible []model.FamilyMember, key func(model.FamilyMember) int) (*model.FamilyMember, error) {
	if len(eligible) == 0 {
		return nil, ErrNoEligibleMembers
	}

	best := 0
	for i := 1; i < len(eligible); i++ {
		if key(eligible[i]) < key(eligible[best]) {
			best = i
		}
	}
	return &eligible[best], nil
}

// NextIndex advances a round-robin cursor over a list of the given size.
// This is the default assignee-rotation algorithm; SelectNext with a
// times-assigned key is the fairness-based alternative used for captains.
func NextIndex(current, size int) int {
	if size <= 0 {
		return 0
	}
	return (current + 1) % size
}
