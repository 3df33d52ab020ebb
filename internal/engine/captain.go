package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/rotation"
	"github.com/jmadden/hearth/internal/store"
)

// CaptainTerm is the fixed length of a captain's term.
const CaptainTerm = 7 * 24 * time.Hour

// Captain advances a household's rotating lead role. Like the generator it
// is trigger-agnostic: callers decide when to rotate via NeedsRotation.
type Captain struct {
	households *store.HouseholdStore
	members    *store.FamilyMemberStore
	logger     *slog.Logger
}

func NewCaptain(households *store.HouseholdStore, members *store.FamilyMemberStore, logger *slog.Logger) *Captain {
	return &Captain{households: households, members: members, logger: logger}
}

// NeedsRotation reports whether the current term has lapsed. A household
// that never had a captain always needs one.
func NeedsRotation(state model.CaptainState, now time.Time) bool {
	if state.EndsAt == nil {
		return true
	}
	return now.After(*state.EndsAt)
}

// Rotate installs the next captain for a fresh 7-day term. An explicit
// member id bypasses the fairness selection; otherwise the eligible member
// with the fewest lifetime terms wins, ties broken by database order. When
// an overlapping invocation rotates first, the earlier term stands and is
// returned without error.
func (c *Captain) Rotate(householdID int64, now time.Time, explicitNext *int64) (*model.CaptainState, error) {
	household, err := c.households.GetByID(householdID)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}
	if household == nil {
		return nil, fmt.Errorf("household %d not found", householdID)
	}

	var nextID int64
	if explicitNext != nil {
		member, err := c.members.GetByID(*explicitNext)
		if err != nil {
			return nil, fmt.Errorf("load member: %w", err)
		}
		if member == nil || member.HouseholdID != householdID {
			return nil, fmt.Errorf("member %d not found in household %d", *explicitNext, householdID)
		}
		nextID = member.ID
	} else {
		eligible, err := c.members.ListEligible(householdID)
		if err != nil {
			return nil, fmt.Errorf("list eligible members: %w", err)
		}
		pick, err := rotation.SelectNext(eligible, func(m model.FamilyMember) int {
			return m.TimesCaptain
		})
		if err != nil {
			return nil, err
		}
		nextID = pick.ID
	}

	startedAt := now.UTC()
	endsAt := startedAt.Add(CaptainTerm)

	ok, err := c.households.ConditionalUpdateCaptain(householdID, household.Captain, nextID, startedAt, endsAt)
	if err != nil {
		return nil, fmt.Errorf("install captain: %w", err)
	}
	if !ok {
		// Lost the race; whoever won already started a term.
		current, err := c.households.GetByID(householdID)
		if err != nil {
			return nil, fmt.Errorf("reload household: %w", err)
		}
		return &current.Captain, nil
	}

	if err := c.members.IncrementTimesCaptain(nextID); err != nil {
		c.logger.Error("increment times_captain", "member_id", nextID, "error", err)
	}

	c.logger.Info("captain rotated", "household_id", householdID, "member_id", nextID, "ends_at", endsAt)
	return &model.CaptainState{
		MemberID:  &nextID,
		StartedAt: &startedAt,
		EndsAt:    &endsAt,
	}, nil
}

// RateCaptain records a star rating for the current term and the captain's
// lifetime aggregate.
func (c *Captain) RateCaptain(householdID int64, stars int) (*model.CaptainState, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("stars must be between 1 and 5")
	}

	household, err := c.households.GetByID(householdID)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}
	if household == nil {
		return nil, fmt.Errorf("household %d not found", householdID)
	}
	if household.Captain.MemberID == nil {
		return nil, fmt.Errorf("household %d has no captain", householdID)
	}

	if err := c.households.RateCaptain(householdID, stars); err != nil {
		return nil, err
	}
	if err := c.members.AddRating(*household.Captain.MemberID, stars); err != nil {
		c.logger.Error("add lifetime rating", "member_id", *household.Captain.MemberID, "error", err)
	}

	updated, err := c.households.GetByID(householdID)
	if err != nil {
		return nil, fmt.Errorf("reload household: %w", err)
	}
	return &updated.Captain, nil
}
