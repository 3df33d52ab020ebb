package store

import (
	"database/sql"
	"fmt"

	"github.com/jmadden/hearth/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

const memberCols = `id, household_id, name, color, avatar_emoji, role, pin IS NOT NULL, sort_order, times_captain, rating_count, rating_sum, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := scanner.Scan(
		&m.ID, &m.HouseholdID, &m.Name, &m.Color, &m.AvatarEmoji, &m.Role,
		&m.HasPIN, &m.SortOrder, &m.TimesCaptain, &m.RatingCount, &m.RatingSum,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *FamilyMemberStore) Create(householdID int64, name, color, avatarEmoji, role string) (*model.FamilyMember, error) {
	if role == "" {
		role = model.RoleAdult
	}

	var maxOrder int
	err := s.db.QueryRow("SELECT COALESCE(MAX(sort_order), -1) FROM family_members WHERE household_id = ?", householdID).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		"INSERT INTO family_members (household_id, name, color, avatar_emoji, role, sort_order) VALUES (?, ?, ?, ?, ?, ?)",
		householdID, name, color, avatarEmoji, role, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *FamilyMemberStore) List(householdID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		"SELECT "+memberCols+" FROM family_members WHERE household_id = ? ORDER BY sort_order, id",
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListEligible returns the household's members that can hold the captain
// role or a rotation slot, in stable database order. Pets are excluded.
func (s *FamilyMemberStore) ListEligible(householdID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		"SELECT "+memberCols+" FROM family_members WHERE household_id = ? AND role != ? ORDER BY sort_order, id",
		householdID, model.RolePet,
	)
	if err != nil {
		return nil, fmt.Errorf("query eligible members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) GetByID(id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow("SELECT "+memberCols+" FROM family_members WHERE id = ?", id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) Update(id int64, name, color, avatarEmoji, role string) (*model.FamilyMember, error) {
	_, err := s.db.Exec(
		"UPDATE family_members SET name = ?, color = ?, avatar_emoji = ?, role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		name, color, avatarEmoji, role, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyMemberStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM family_members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) UpdateSortOrder(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE family_members SET sort_order = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.Exec(i, id); err != nil {
			return fmt.Errorf("update sort order for id %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// IncrementTimesCaptain bumps the member's lifetime captain counter. It runs
// as its own write after the captain compare-and-swap commits; only the
// rotation winner ever calls it, so it needs no guard of its own.
func (s *FamilyMemberStore) IncrementTimesCaptain(id int64) error {
	_, err := s.db.Exec(
		"UPDATE family_members SET times_captain = times_captain + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		id,
	)
	if err != nil {
		return fmt.Errorf("increment times_captain: %w", err)
	}
	return nil
}

// AddRating accumulates one star rating into the member's lifetime aggregate.
func (s *FamilyMemberStore) AddRating(id int64, stars int) error {
	_, err := s.db.Exec(
		"UPDATE family_members SET rating_count = rating_count + 1, rating_sum = rating_sum + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		stars, id,
	)
	if err != nil {
		return fmt.Errorf("add rating: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) SetPIN(id int64, hashedPIN string) error {
	_, err := s.db.Exec("UPDATE family_members SET pin = ? WHERE id = ?", hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) ClearPIN(id int64) error {
	_, err := s.db.Exec("UPDATE family_members SET pin = NULL WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) GetPINHash(id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow("SELECT pin FROM family_members WHERE id = ?", id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("family member not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}
