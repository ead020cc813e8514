// Package api exposes the pomodoro session endpoints over HTTP.
package api

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/verte-zerg/pomo/internal/model"
)

// Lifecycle is the session service behind the HTTP handlers.
type Lifecycle interface {
	Start(ctx context.Context, userID string, req model.StartRequest) (model.Session, error)
	Log(ctx context.Context, userID string, req model.LogRequest) (model.Session, error)
	List(ctx context.Context, userID string) ([]model.Session, error)
	Stats(ctx context.Context, userID string) (model.Stats, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(svc Lifecycle, db Pinger, apiKey string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(db)
	pomodoroH := NewPomodoroHandler(svc, logger)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/pomodoros", func(r chi.Router) {
			r.Get("/", pomodoroH.List)
			r.Post("/start/{userId}", pomodoroH.Start)
			r.Post("/log/{userId}", pomodoroH.Log)
			r.Get("/stats/{userId}", pomodoroH.Stats)
		})
	})

	return r
}
