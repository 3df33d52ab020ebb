package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/store"
)

type AreaHandler struct {
	store  *store.AreaStore
	logger *slog.Logger
}

func NewAreaHandler(s *store.AreaStore, logger *slog.Logger) *AreaHandler {
	return &AreaHandler{store: s, logger: logger}
}

func (h *AreaHandler) List(w http.ResponseWriter, r *http.Request) {
	areas, err := h.store.List()
	if err != nil {
		h.logger.Error("list areas", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list areas")
		return
	}
	if areas == nil {
		areas = []model.Area{}
	}
	writeJSON(w, http.StatusOK, areas)
}

func (h *AreaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		SortOrder int    `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	area, err := h.store.Create(req.Name, req.SortOrder)
	if err != nil {
		h.logger.Error("create area", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create area")
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

func (h *AreaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get area")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "area not found")
		return
	}

	var req struct {
		Name      string `json:"name"`
		SortOrder int    `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	area, err := h.store.Update(id, req.Name, req.SortOrder)
	if err != nil {
		h.logger.Error("update area", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update area")
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *AreaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get area")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "area not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete area", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete area")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
