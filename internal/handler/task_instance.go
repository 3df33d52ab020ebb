package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/store"
	"github.com/jmadden/hearth/internal/websocket"
)

type TaskInstanceHandler struct {
	instances *store.TaskInstanceStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewTaskInstanceHandler(instances *store.TaskInstanceStore, hub *websocket.Hub, logger *slog.Logger) *TaskInstanceHandler {
	return &TaskInstanceHandler{instances: instances, hub: hub, logger: logger}
}

func (h *TaskInstanceHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	status := model.TaskStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.TaskPending, model.TaskCompleted:
	default:
		writeError(w, http.StatusBadRequest, "status must be pending or completed")
		return
	}

	instances, err := h.instances.List(householdID, status)
	if err != nil {
		h.logger.Error("list task instances", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

// ListByDefinition returns the instances a recurring definition has generated.
func (h *TaskInstanceHandler) ListByDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	instances, err := h.instances.ListByDefinition(id)
	if err != nil {
		h.logger.Error("list instances by definition", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

// Create adds a one-off task with no recurring definition behind it.
func (h *TaskInstanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	var req struct {
		Title            string     `json:"title"`
		Description      string     `json:"description"`
		AreaID           *int64     `json:"area_id"`
		Points           int        `json:"points"`
		EstimatedMinutes int        `json:"estimated_minutes"`
		AssignedTo       *int64     `json:"assigned_to"`
		DueAt            *time.Time `json:"due_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	dueAt := time.Now().UTC()
	if req.DueAt != nil {
		dueAt = req.DueAt.UTC()
	}

	instance, err := h.instances.Create(model.TaskInstance{
		HouseholdID:      householdID,
		Title:            req.Title,
		Description:      req.Description,
		AreaID:           req.AreaID,
		Points:           req.Points,
		EstimatedMinutes: req.EstimatedMinutes,
		AssignedTo:       req.AssignedTo,
		DueAt:            dueAt,
	})
	if err != nil {
		h.logger.Error("create task instance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "created", householdID, instance.ID, nil))
	writeJSON(w, http.StatusCreated, instance)
}

func (h *TaskInstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	instance, err := h.instances.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if instance == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

func (h *TaskInstanceHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.instances.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req struct {
		CompletedBy *int64 `json:"completed_by"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	instance, err := h.instances.Complete(id, req.CompletedBy)
	if err != nil {
		h.logger.Error("complete task instance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete task")
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "completed", instance.HouseholdID, instance.ID, nil))
	writeJSON(w, http.StatusOK, instance)
}

func (h *TaskInstanceHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.instances.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	instance, err := h.instances.Reopen(id)
	if err != nil {
		h.logger.Error("reopen task instance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reopen task")
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "reopened", instance.HouseholdID, instance.ID, nil))
	writeJSON(w, http.StatusOK, instance)
}

func (h *TaskInstanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.instances.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.instances.Delete(id); err != nil {
		h.logger.Error("delete task instance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "deleted", existing.HouseholdID, id, nil))
	w.WriteHeader(http.StatusNoContent)
}
