package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmadden/hearth/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

const householdCols = `id, name, captain_member_id, captain_started_at, captain_ends_at, captain_rating_count, captain_rating_sum, created_at, updated_at`

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	var captainID sql.NullInt64
	var startedAt, endsAt sql.NullTime

	err := scanner.Scan(
		&h.ID, &h.Name, &captainID, &startedAt, &endsAt,
		&h.Captain.RatingCount, &h.Captain.RatingSum,
		&h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if captainID.Valid {
		h.Captain.MemberID = &captainID.Int64
	}
	if startedAt.Valid {
		t := startedAt.Time
		h.Captain.StartedAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time
		h.Captain.EndsAt = &t
	}
	return &h, nil
}

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	result, err := s.db.Exec(`INSERT INTO households (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id int64) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) List() ([]model.Household, error) {
	rows, err := s.db.Query(`SELECT ` + householdCols + ` FROM households ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}

func (s *HouseholdStore) UpdateName(id int64, name string) (*model.Household, error) {
	_, err := s.db.Exec(`UPDATE households SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM households WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete household: %w", err)
	}
	return nil
}

// ConditionalUpdateCaptain installs a new captain term iff the household's
// captain fields still match the state the caller read (compare-and-swap).
// The term rating aggregate resets to zero as part of the same write. It
// returns false, nil when another invocation won the race.
func (s *HouseholdStore) ConditionalUpdateCaptain(householdID int64, expected model.CaptainState, memberID int64, startedAt, endsAt time.Time) (bool, error) {
	var expectedMember any
	if expected.MemberID != nil {
		expectedMember = *expected.MemberID
	}
	var expectedStarted any
	if expected.StartedAt != nil {
		expectedStarted = expected.StartedAt.UTC()
	}

	result, err := s.db.Exec(
		`UPDATE households
		 SET captain_member_id = ?, captain_started_at = ?, captain_ends_at = ?,
		     captain_rating_count = 0, captain_rating_sum = 0,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND captain_member_id IS ? AND captain_started_at IS ?`,
		memberID, startedAt.UTC(), endsAt.UTC(),
		householdID, expectedMember, expectedStarted,
	)
	if err != nil {
		return false, fmt.Errorf("update captain: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RateCaptain accumulates one star rating into the current term's aggregate.
func (s *HouseholdStore) RateCaptain(householdID int64, stars int) error {
	result, err := s.db.Exec(
		`UPDATE households
		 SET captain_rating_count = captain_rating_count + 1,
		     captain_rating_sum = captain_rating_sum + ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND captain_member_id IS NOT NULL`,
		stars, householdID,
	)
	if err != nil {
		return fmt.Errorf("rate captain: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("household %d has no captain", householdID)
	}
	return nil
}
