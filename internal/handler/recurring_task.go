package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/recurrence"
	"github.com/jmadden/hearth/internal/store"
)

type RecurringTaskHandler struct {
	tasks   *store.RecurringTaskStore
	members *store.FamilyMemberStore
	logger  *slog.Logger
}

func NewRecurringTaskHandler(tasks *store.RecurringTaskStore, members *store.FamilyMemberStore, logger *slog.Logger) *RecurringTaskHandler {
	return &RecurringTaskHandler{tasks: tasks, members: members, logger: logger}
}

type recurringTaskRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	AreaID            *int64     `json:"area_id"`
	Points            int        `json:"points"`
	EstimatedMinutes  int        `json:"estimated_minutes"`
	RecurrenceRule    string     `json:"recurrence_rule"`
	AssignedTo        *int64     `json:"assigned_to"`
	RotationAssignees []int64    `json:"rotation_assignees"`
	FirstDueAt        *time.Time `json:"first_due_at"`
}

// validateAssignees checks that every rotation member exists, belongs to the
// household, and can hold a rotation slot. Pets cannot be assigned tasks.
func (h *RecurringTaskHandler) validateAssignees(householdID int64, ids []int64) (string, error) {
	for _, id := range ids {
		member, err := h.members.GetByID(id)
		if err != nil {
			return "", err
		}
		if member == nil || member.HouseholdID != householdID {
			return "rotation member not found in household", nil
		}
		if !member.Eligible() {
			return "pets cannot hold a rotation slot", nil
		}
	}
	return "", nil
}

func (h *RecurringTaskHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	tasks, err := h.tasks.List(householdID)
	if err != nil {
		h.logger.Error("list recurring tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recurring tasks")
		return
	}
	if tasks == nil {
		tasks = []model.RecurringTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *RecurringTaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	var req recurringTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if _, err := recurrence.Parse(req.RecurrenceRule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurrence rule: "+err.Error())
		return
	}

	if req.FirstDueAt == nil {
		writeError(w, http.StatusBadRequest, "first_due_at is required")
		return
	}

	if msg, err := h.validateAssignees(householdID, req.RotationAssignees); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to validate assignees")
		return
	} else if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Create(model.RecurringTask{
		HouseholdID:      householdID,
		Title:            req.Title,
		Description:      req.Description,
		AreaID:           req.AreaID,
		Points:           req.Points,
		EstimatedMinutes: req.EstimatedMinutes,
		RecurrenceRule:   req.RecurrenceRule,
		AssignedTo:       req.AssignedTo,
		NextOccurrenceAt: req.FirstDueAt.UTC(),
	}, req.RotationAssignees)
	if err != nil {
		h.logger.Error("create recurring task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create recurring task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *RecurringTaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get recurring task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "recurring task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Schedule returns the parsed rule and a human-readable description, e.g.
// "every 2 weeks on Monday, Friday".
func (h *RecurringTaskHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get recurring task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "recurring task not found")
		return
	}

	rule, err := recurrence.Parse(task.RecurrenceRule)
	if err != nil {
		h.logger.Error("stored rule failed to parse", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "stored rule is invalid")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rule":               rule.String(),
		"description":        rule.Describe(),
		"next_occurrence_at": task.NextOccurrenceAt,
		"is_active":          task.IsActive,
	})
}

func (h *RecurringTaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get recurring task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "recurring task not found")
		return
	}

	var req recurringTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if _, err := recurrence.Parse(req.RecurrenceRule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurrence rule: "+err.Error())
		return
	}

	if msg, err := h.validateAssignees(existing.HouseholdID, req.RotationAssignees); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to validate assignees")
		return
	} else if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated := *existing
	updated.Title = req.Title
	updated.Description = req.Description
	updated.AreaID = req.AreaID
	updated.Points = req.Points
	updated.EstimatedMinutes = req.EstimatedMinutes
	updated.RecurrenceRule = req.RecurrenceRule
	updated.AssignedTo = req.AssignedTo

	// Changing the rule usually calls for a new anchor; a provided
	// first_due_at re-anchors the schedule, otherwise the current next
	// occurrence stands and the new rule takes over from there.
	if req.FirstDueAt != nil {
		updated.NextOccurrenceAt = req.FirstDueAt.UTC()
		updated.IsActive = true
	}

	task, err := h.tasks.Update(updated, req.RotationAssignees)
	if err != nil {
		h.logger.Error("update recurring task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update recurring task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *RecurringTaskHandler) SetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}

		existing, err := h.tasks.GetByID(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get recurring task")
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "recurring task not found")
			return
		}

		if err := h.tasks.SetActive(id, active); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update recurring task")
			return
		}

		task, err := h.tasks.GetByID(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get recurring task")
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

func (h *RecurringTaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get recurring task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "recurring task not found")
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		h.logger.Error("delete recurring task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete recurring task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
