package engine

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmadden/hearth/internal/database"
	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createHousehold(t *testing.T, db *sql.DB, name string) *model.Household {
	t.Helper()
	h, err := store.NewHouseholdStore(db).Create(name)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return h
}

func createMember(t *testing.T, db *sql.DB, householdID int64, name, role string) *model.FamilyMember {
	t.Helper()
	m, err := store.NewFamilyMemberStore(db).Create(householdID, name, "#3B82F6", "😀", role)
	if err != nil {
		t.Fatalf("create member %s: %v", name, err)
	}
	return m
}

func createRecurringTask(t *testing.T, db *sql.DB, householdID int64, title, rule string, nextAt time.Time, assignees []int64) *model.RecurringTask {
	t.Helper()
	task, err := store.NewRecurringTaskStore(db).Create(model.RecurringTask{
		HouseholdID:      householdID,
		Title:            title,
		RecurrenceRule:   rule,
		Points:           5,
		NextOccurrenceAt: nextAt,
	}, assignees)
	if err != nil {
		t.Fatalf("create recurring task %s: %v", title, err)
	}
	return task
}
