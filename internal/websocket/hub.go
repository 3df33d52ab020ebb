package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event is a real-time notification broadcast to every connected client.
// Clients filter by household_id; the hub itself is household-agnostic.
type Event struct {
	Type        string         `json:"type"`
	HouseholdID int64          `json:"household_id"`
	ID          int64          `json:"id,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// NewEvent builds an entity-level event, e.g. ("task", "completed").
func NewEvent(entity, action string, householdID, id int64, extra map[string]any) Event {
	return Event{
		Type:        fmt.Sprintf("%s_%s", entity, action),
		HouseholdID: householdID,
		ID:          id,
		Extra:       extra,
	}
}

// TasksGenerated announces a generation batch.
func TasksGenerated(householdID int64, batchID string, generated int) Event {
	return Event{
		Type:        "tasks_generated",
		HouseholdID: householdID,
		Extra: map[string]any{
			"batch_id": batchID,
			"count":    generated,
		},
	}
}

// CaptainRotated announces the start of a new captain term.
func CaptainRotated(householdID, memberID int64, endsAt time.Time) Event {
	return Event{
		Type:        "captain_rotated",
		HouseholdID: householdID,
		ID:          memberID,
		Extra: map[string]any{
			"ends_at": endsAt.UTC().Format(time.RFC3339),
		},
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop rather than block the broadcaster
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
