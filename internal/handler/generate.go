package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmadden/hearth/internal/engine"
	"github.com/jmadden/hearth/internal/push"
	"github.com/jmadden/hearth/internal/store"
	"github.com/jmadden/hearth/internal/websocket"
)

// GenerateHandler exposes on-demand generation. It runs the same engine as
// the periodic scheduler; an overlapping tick is harmless because the engine
// skips cycles another invocation already handled.
type GenerateHandler struct {
	generator  *engine.Generator
	households *store.HouseholdStore
	hub        *websocket.Hub
	notifier   *push.Notifier
	logger     *slog.Logger
}

func NewGenerateHandler(generator *engine.Generator, households *store.HouseholdStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		generator:  generator,
		households: households,
		hub:        hub,
		notifier:   notifier,
		logger:     logger,
	}
}

func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	householdID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	household, err := h.households.GetByID(householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get household")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "household not found")
		return
	}

	res, err := h.generator.GenerateDue(householdID, time.Now().UTC())
	if err != nil {
		h.logger.Error("on-demand generation", "household_id", householdID, "error", err)
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	if res.GeneratedCount() > 0 {
		h.hub.Broadcast(websocket.TasksGenerated(householdID, res.BatchID, res.GeneratedCount()))
		h.notifier.NotifyGeneration(householdID, res.GeneratedCount())
	}

	writeJSON(w, http.StatusOK, res)
}
