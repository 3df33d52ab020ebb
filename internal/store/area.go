package store

import (
	"database/sql"
	"fmt"

	"github.com/jmadden/hearth/internal/model"
)

type AreaStore struct {
	db *sql.DB
}

func NewAreaStore(db *sql.DB) *AreaStore {
	return &AreaStore{db: db}
}

const areaCols = `id, name, sort_order, created_at, updated_at`

func scanArea(scanner interface{ Scan(...any) error }) (*model.Area, error) {
	var a model.Area
	err := scanner.Scan(&a.ID, &a.Name, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AreaStore) List() ([]model.Area, error) {
	rows, err := s.db.Query(`SELECT ` + areaCols + ` FROM areas ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, *a)
	}
	return areas, rows.Err()
}

func (s *AreaStore) GetByID(id int64) (*model.Area, error) {
	row := s.db.QueryRow(`SELECT `+areaCols+` FROM areas WHERE id = ?`, id)
	a, err := scanArea(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get area: %w", err)
	}
	return a, nil
}

func (s *AreaStore) Create(name string, sortOrder int) (*model.Area, error) {
	result, err := s.db.Exec(`INSERT INTO areas (name, sort_order) VALUES (?, ?)`, name, sortOrder)
	if err != nil {
		return nil, fmt.Errorf("insert area: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AreaStore) Update(id int64, name string, sortOrder int) (*model.Area, error) {
	_, err := s.db.Exec(`UPDATE areas SET name = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, sortOrder, id)
	if err != nil {
		return nil, fmt.Errorf("update area: %w", err)
	}
	return s.GetByID(id)
}

func (s *AreaStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM areas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete area: %w", err)
	}
	return nil
}
