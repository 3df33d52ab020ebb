package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmadden/hearth/internal/engine"
	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/push"
	"github.com/jmadden/hearth/internal/rotation"
	"github.com/jmadden/hearth/internal/store"
	"github.com/jmadden/hearth/internal/websocket"
)

type CaptainHandler struct {
	captain    *engine.Captain
	households *store.HouseholdStore
	members    *store.FamilyMemberStore
	hub        *websocket.Hub
	notifier   *push.Notifier
	logger     *slog.Logger
}

func NewCaptainHandler(captain *engine.Captain, households *store.HouseholdStore, members *store.FamilyMemberStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *CaptainHandler {
	return &CaptainHandler{
		captain:    captain,
		households: households,
		members:    members,
		hub:        hub,
		notifier:   notifier,
		logger:     logger,
	}
}

type captainResponse struct {
	MemberID      *int64     `json:"member_id"`
	Member        any        `json:"member,omitempty"`
	StartedAt     *time.Time `json:"started_at"`
	EndsAt        *time.Time `json:"ends_at"`
	RatingCount   int        `json:"rating_count"`
	RatingAverage float64    `json:"rating_average"`
	NeedsRotation bool       `json:"needs_rotation"`
}

func (h *CaptainHandler) respond(w http.ResponseWriter, state model.CaptainState, now time.Time) {
	resp := captainResponse{
		MemberID:      state.MemberID,
		StartedAt:     state.StartedAt,
		EndsAt:        state.EndsAt,
		RatingCount:   state.RatingCount,
		RatingAverage: state.RatingAverage(),
		NeedsRotation: engine.NeedsRotation(state, now),
	}
	if state.MemberID != nil {
		if member, err := h.members.GetByID(*state.MemberID); err == nil && member != nil {
			resp.Member = member
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns the current captain term.
func (h *CaptainHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	h.respond(w, household.Captain, time.Now().UTC())
}

// Rotate starts a new captain term, either for an explicitly chosen member
// or for the fairness pick.
func (h *CaptainHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	householdID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	var req struct {
		MemberID *int64 `json:"member_id"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	now := time.Now().UTC()
	state, err := h.captain.Rotate(householdID, now, req.MemberID)
	if err != nil {
		if errors.Is(err, rotation.ErrNoEligibleMembers) {
			writeError(w, http.StatusConflict, "no eligible members to take the captain role")
			return
		}
		h.logger.Error("rotate captain", "household_id", householdID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rotate captain")
		return
	}

	if state.MemberID != nil && state.EndsAt != nil {
		h.hub.Broadcast(websocket.CaptainRotated(householdID, *state.MemberID, *state.EndsAt))
		if member, err := h.members.GetByID(*state.MemberID); err == nil && member != nil {
			h.notifier.NotifyCaptainRotation(householdID, member.Name)
		}
	}

	h.respond(w, *state, now)
}

// Rate records a 1-5 star rating for the sitting captain.
func (h *CaptainHandler) Rate(w http.ResponseWriter, r *http.Request) {
	householdID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	var req struct {
		Stars int `json:"stars"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Stars < 1 || req.Stars > 5 {
		writeError(w, http.StatusBadRequest, "stars must be between 1 and 5")
		return
	}

	state, err := h.captain.RateCaptain(householdID, req.Stars)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respond(w, *state, time.Now().UTC())
}
