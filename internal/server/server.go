package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmadden/hearth/internal/backup"
	"github.com/jmadden/hearth/internal/engine"
	"github.com/jmadden/hearth/internal/handler"
	"github.com/jmadden/hearth/internal/middleware"
	"github.com/jmadden/hearth/internal/model"
	"github.com/jmadden/hearth/internal/push"
	"github.com/jmadden/hearth/internal/store"
	ws "github.com/jmadden/hearth/internal/websocket"
)

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	householdH *handler.HouseholdHandler
	memberH    *handler.FamilyMemberHandler
	areaH      *handler.AreaHandler
	taskH      *handler.RecurringTaskHandler
	instanceH  *handler.TaskInstanceHandler
	captainH   *handler.CaptainHandler
	generateH  *handler.GenerateHandler
	pushH      *handler.PushHandler
	backupH    *handler.BackupHandler

	scheduler     *engine.Scheduler
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, pushCfg push.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	memberStore := store.NewFamilyMemberStore(db)
	areaStore := store.NewAreaStore(db)
	taskStore := store.NewRecurringTaskStore(db)
	instanceStore := store.NewTaskInstanceStore(db)
	pushStore := store.NewPushStore(db)

	pushSvc := push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
	notifier := push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))

	generator := engine.NewGenerator(taskStore, logger.With("component", "generator"))
	captain := engine.NewCaptain(householdStore, memberStore, logger.With("component", "captain"))

	scheduler := engine.NewScheduler(generator, captain, householdStore, logger.With("component", "scheduler"))
	scheduler.OnBatch = func(householdID int64, res engine.Result) {
		hub.Broadcast(ws.TasksGenerated(householdID, res.BatchID, res.GeneratedCount()))
		notifier.NotifyGeneration(householdID, res.GeneratedCount())
	}
	scheduler.OnRotate = func(householdID int64, state model.CaptainState) {
		if state.MemberID == nil || state.EndsAt == nil {
			return
		}
		hub.Broadcast(ws.CaptainRotated(householdID, *state.MemberID, *state.EndsAt))
		if member, err := memberStore.GetByID(*state.MemberID); err == nil && member != nil {
			notifier.NotifyCaptainRotation(householdID, member.Name)
		}
	}

	backupMgr := backup.NewManager(backupCfg, db, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Event{
			Type:        "backup_status",
			HouseholdID: 0,
			Extra: map[string]any{
				"state":       string(s.State),
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	return &Server{
		db:            db,
		hub:           hub,
		householdH:    handler.NewHouseholdHandler(householdStore, logger.With("component", "household")),
		memberH:       handler.NewFamilyMemberHandler(memberStore, logger.With("component", "family_member")),
		areaH:         handler.NewAreaHandler(areaStore, logger.With("component", "area")),
		taskH:         handler.NewRecurringTaskHandler(taskStore, memberStore, logger.With("component", "recurring_task")),
		instanceH:     handler.NewTaskInstanceHandler(instanceStore, hub, logger.With("component", "task_instance")),
		captainH:      handler.NewCaptainHandler(captain, householdStore, memberStore, hub, notifier, logger.With("component", "captain_handler")),
		generateH:     handler.NewGenerateHandler(generator, householdStore, hub, notifier, logger.With("component", "generate")),
		pushH:         handler.NewPushHandler(pushSvc, pushStore, logger.With("component", "push_handler")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		scheduler:     scheduler,
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// Scheduler returns the generation/rotation scheduler for lifecycle control.
func (s *Server) Scheduler() *engine.Scheduler {
	return s.scheduler
}

// BackupManager returns the backup manager for lifecycle control.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Households
	mux.HandleFunc("GET /api/households", s.householdH.List)
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("GET /api/households/{id}", s.householdH.Get)
	mux.HandleFunc("PUT /api/households/{id}", s.householdH.Update)
	mux.HandleFunc("DELETE /api/households/{id}", s.householdH.Delete)

	// Family members
	mux.HandleFunc("GET /api/households/{id}/members", s.memberH.List)
	mux.HandleFunc("POST /api/households/{id}/members", s.memberH.Create)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)
	mux.HandleFunc("PUT /api/members/sort", s.memberH.UpdateSortOrder)
	mux.HandleFunc("POST /api/members/{id}/pin", s.memberH.SetPIN)
	mux.HandleFunc("DELETE /api/members/{id}/pin", s.memberH.ClearPIN)
	mux.HandleFunc("POST /api/members/{id}/pin/verify", s.rateLimited(s.memberH.VerifyPIN))

	// Areas
	mux.HandleFunc("GET /api/areas", s.areaH.List)
	mux.HandleFunc("POST /api/areas", s.areaH.Create)
	mux.HandleFunc("PUT /api/areas/{id}", s.areaH.Update)
	mux.HandleFunc("DELETE /api/areas/{id}", s.areaH.Delete)

	// Recurring task definitions
	mux.HandleFunc("GET /api/households/{id}/recurring-tasks", s.taskH.List)
	mux.HandleFunc("POST /api/households/{id}/recurring-tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/recurring-tasks/{id}", s.taskH.Get)
	mux.HandleFunc("GET /api/recurring-tasks/{id}/schedule", s.taskH.Schedule)
	mux.HandleFunc("GET /api/recurring-tasks/{id}/instances", s.instanceH.ListByDefinition)
	mux.HandleFunc("PUT /api/recurring-tasks/{id}", s.taskH.Update)
	mux.HandleFunc("POST /api/recurring-tasks/{id}/activate", s.taskH.SetActive(true))
	mux.HandleFunc("POST /api/recurring-tasks/{id}/deactivate", s.taskH.SetActive(false))
	mux.HandleFunc("DELETE /api/recurring-tasks/{id}", s.taskH.Delete)

	// Task instances
	mux.HandleFunc("GET /api/households/{id}/tasks", s.instanceH.List)
	mux.HandleFunc("POST /api/households/{id}/tasks", s.instanceH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.instanceH.Get)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.instanceH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/reopen", s.instanceH.Reopen)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.instanceH.Delete)

	// Generation trigger
	mux.HandleFunc("POST /api/households/{id}/generate", s.generateH.Generate)

	// Captain
	mux.HandleFunc("GET /api/households/{id}/captain", s.captainH.Get)
	mux.HandleFunc("POST /api/households/{id}/captain/rotate", s.captainH.Rotate)
	mux.HandleFunc("POST /api/households/{id}/captain/rate", s.captainH.Rate)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("GET /api/households/{id}/push/subscriptions", s.pushH.List)
	mux.HandleFunc("POST /api/households/{id}/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// Backups
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backup/run", s.backupH.RunNow)
	mux.HandleFunc("GET /api/backup/snapshots", s.backupH.List)
	mux.HandleFunc("GET /api/backup/download", s.backupH.Download)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}
