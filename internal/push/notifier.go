package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmadden/hearth/internal/store"
)

// Notifier fans domain events out to every push subscription in a household.
// Expired subscriptions are pruned as they are discovered.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	logger  *slog.Logger
}

func NewNotifier(service *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{service: service, subs: subs, logger: logger}
}

// NotifyGeneration announces a batch of freshly generated tasks.
func (n *Notifier) NotifyGeneration(householdID int64, generated int) {
	n.broadcast(householdID, generationPayload(generated))
}

func generationPayload(generated int) Payload {
	body := fmt.Sprintf("%d new tasks are on the board", generated)
	if generated == 1 {
		body = "A new task is on the board"
	}
	return Payload{
		Title: "Tasks Generated",
		Body:  body,
		URL:   "/tasks",
		Tag:   "tasks-generated",
	}
}

// NotifyCaptainRotation announces a new captain's term.
func (n *Notifier) NotifyCaptainRotation(householdID int64, memberName string) {
	n.broadcast(householdID, Payload{
		Title: "New Captain",
		Body:  fmt.Sprintf("%s is captain for the week", memberName),
		URL:   "/captain",
		Tag:   "captain-rotated",
	})
}

func (n *Notifier) broadcast(householdID int64, payload Payload) {
	subs, err := n.subs.ListByHousehold(householdID)
	if err != nil {
		n.logger.Error("list push subscriptions", "household_id", householdID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := n.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("prune expired subscription", "error", err)
				}
				continue
			}
			n.logger.Error("send push", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
