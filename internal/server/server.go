package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mossrock/bramble/internal/dispatch"
	"github.com/mossrock/bramble/internal/email"
	"github.com/mossrock/bramble/internal/handler"
	"github.com/mossrock/bramble/internal/middleware"
	"github.com/mossrock/bramble/internal/notify"
	"github.com/mossrock/bramble/internal/recommend"
	"github.com/mossrock/bramble/internal/store"
	ws "github.com/mossrock/bramble/internal/websocket"
)

type Server struct {
	db               *sql.DB
	hub              *ws.Hub
	authH            *handler.AuthHandler
	taskH            *handler.TaskHandler
	categoryH        *handler.CategoryHandler
	birthdayH        *handler.BirthdayHandler
	preferenceH      *handler.PreferenceHandler
	recommendationH  *handler.RecommendationHandler
	notificationH    *handler.NotificationHandler
	sessionStore     *store.SessionStore
	rateLimiter      *middleware.RateLimiter
	dispatchEngine   *dispatch.Engine
	dispatchSchedule *dispatch.Scheduler
	logger           *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	categoryStore := store.NewCategoryStore(db)
	taskStore := store.NewTaskStore(db)
	birthdayStore := store.NewBirthdayStore(db)
	preferenceStore := store.NewPreferenceStore(db)
	recommendationStore := store.NewRecommendationStore(db)
	notificationStore := store.NewNotificationStore(db)

	generator := recommend.NewGenerator(taskStore, recommendationStore)

	// Delivery channels for scheduled notifications. Email is optional;
	// the in-app inbox always receives a copy.
	senders := []notify.Sender{notify.NewInAppSender(notificationStore, hub)}
	if emailClient.Configured() {
		senders = append(senders, notify.NewEmailSender(emailClient))
	}

	dispatchLogger := logger.With("component", "dispatch")
	engine := dispatch.NewEngine(
		preferenceStore,
		userStore,
		store.NewLockStore(db),
		notify.NewFanout(senders...),
		dispatchLogger,
		dispatch.NewWeeklyDigestHandler(generator, recommendationStore, taskStore),
		dispatch.NewTaskReminderHandler(recommendationStore),
	)

	return &Server{
		db:               db,
		hub:              hub,
		authH:            handler.NewAuthHandler(userStore, sessionStore, preferenceStore, logger.With("component", "auth")),
		taskH:            handler.NewTaskHandler(taskStore, categoryStore, logger.With("component", "task")),
		categoryH:        handler.NewCategoryHandler(categoryStore, logger.With("component", "category")),
		birthdayH:        handler.NewBirthdayHandler(birthdayStore, logger.With("component", "birthday")),
		preferenceH:      handler.NewPreferenceHandler(preferenceStore, logger.With("component", "preference")),
		recommendationH:  handler.NewRecommendationHandler(generator, recommendationStore, taskStore, logger.With("component", "recommendation")),
		notificationH:    handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		sessionStore:     sessionStore,
		rateLimiter:      middleware.NewRateLimiter(),
		dispatchEngine:   engine,
		dispatchSchedule: dispatch.NewScheduler(engine, dispatchLogger),
		logger:           logger,
	}
}

// DispatchEngine exposes the engine for the standalone tick CLI.
func (s *Server) DispatchEngine() *dispatch.Engine {
	return s.dispatchEngine
}

// DispatchScheduler returns the hourly scheduler for lifecycle control.
func (s *Server) DispatchScheduler() *dispatch.Scheduler {
	return s.dispatchSchedule
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Task routes
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)

	// Category routes
	mux.HandleFunc("POST /api/categories", s.categoryH.Create)
	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.HandleFunc("PUT /api/categories/{id}", s.categoryH.Update)
	mux.HandleFunc("DELETE /api/categories/{id}", s.categoryH.Delete)

	// Birthday routes
	mux.HandleFunc("POST /api/birthdays", s.birthdayH.Create)
	mux.HandleFunc("GET /api/birthdays", s.birthdayH.List)
	mux.HandleFunc("PUT /api/birthdays/{id}", s.birthdayH.Update)
	mux.HandleFunc("DELETE /api/birthdays/{id}", s.birthdayH.Delete)

	// Notification preference routes
	mux.HandleFunc("GET /api/preferences", s.preferenceH.List)
	mux.HandleFunc("PUT /api/preferences/{kind}", s.preferenceH.Update)

	// Weekly recommendation routes
	mux.HandleFunc("GET /api/recommendations/current", s.recommendationH.Current)
	mux.HandleFunc("POST /api/recommendations/regenerate", s.recommendationH.Regenerate)
	mux.HandleFunc("POST /api/recommendations/tasks/{id}/complete", s.recommendationH.CompleteTask)

	// In-app notification inbox
	mux.HandleFunc("GET /api/notifications", s.notificationH.List)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.notificationH.MarkRead)

	// WebSocket endpoint
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
