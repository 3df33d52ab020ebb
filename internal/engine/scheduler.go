package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/rotation"
	"github.com/jmadden/hearth/internal/store"
)

// Scheduler periodically runs generation and captain rotation for every
// household. It is one trigger among several: handlers invoke the same
// engines on demand, and all invocations converge on the same stored state.
type Scheduler struct {
	mu         sync.RWMutex
	generator  *Generator
	captain    *Captain
	households *store.HouseholdStore
	interval   time.Duration
	logger     *slog.Logger
	cancel     context.CancelFunc
	done       chan struct{}

	// OnBatch and OnRotate fan results out to notification surfaces
	// (websocket broadcast, web push). Either may be nil.
	OnBatch  func(householdID int64, res Result)
	OnRotate func(householdID int64, state model.CaptainState)
}

// NewScheduler creates a scheduler that ticks once a minute.
func NewScheduler(gen *Generator, captain *Captain, households *store.HouseholdStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		generator:  gen,
		captain:    captain,
		households: households,
		interval:   60 * time.Second,
		logger:     logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	households, err := s.households.List()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}

	for _, h := range households {
		now := time.Now().UTC()
		s.runGeneration(h.ID, now)
		s.runRotation(h, now)
	}
}

func (s *Scheduler) runGeneration(householdID int64, now time.Time) {
	res, err := s.generator.GenerateDue(householdID, now)
	if err != nil {
		s.logger.Error("scheduled generation", "household_id", householdID, "error", err)
		return
	}
	if res.GeneratedCount() > 0 && s.OnBatch != nil {
		s.OnBatch(householdID, res)
	}
}

func (s *Scheduler) runRotation(h model.Household, now time.Time) {
	if !NeedsRotation(h.Captain, now) {
		return
	}

	state, err := s.captain.Rotate(h.ID, now, nil)
	if err != nil {
		// A household with no eligible members simply has no captain yet.
		if !errors.Is(err, rotation.ErrNoEligibleMembers) {
			s.logger.Error("scheduled rotation", "household_id", h.ID, "error", err)
		}
		return
	}
	if s.OnRotate != nil {
		s.OnRotate(h.ID, *state)
	}
}
