// Package pomodoro validates and records pomodoro session lifecycle events.
package pomodoro

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/verte-zerg/pomo/internal/model"
	"github.com/verte-zerg/pomo/internal/stats"
)

// SessionStore is the append-only persistence used by the Service.
type SessionStore interface {
	InsertSession(ctx context.Context, sess model.Session) (model.Session, error)
	ListSessions(ctx context.Context, userID string) ([]model.Session, error)
}

// Service handles session start, log, listing and stats.
type Service struct {
	store  SessionStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for default start times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a lifecycle service over store.
func NewService(store SessionStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start records the beginning of a continuous timer run.
func (s *Service) Start(ctx context.Context, userID string, req model.StartRequest) (model.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Session{}, invalid("userId", "is required")
	}
	if req.StudyPeriod <= 0 {
		return model.Session{}, invalid("studyPeriod", "must be a positive number")
	}
	if req.CompletedRounds < 0 {
		return model.Session{}, invalid("completedRounds", "must not be negative")
	}
	startTime := req.StartTime
	if startTime == nil {
		now := s.now()
		startTime = &now
	}
	sess := model.Session{
		UserID:          userID,
		StudyPeriod:     req.StudyPeriod,
		ShortBreak:      withDefault(req.ShortBreak, model.DefaultShortBreak),
		LongBreak:       withDefault(req.LongBreak, model.DefaultLongBreak),
		CompletedRounds: req.CompletedRounds,
		StartTime:       startTime,
		Purpose:         req.Purpose,
		Tag:             req.Tag,
	}
	if err := validateBreaks(sess); err != nil {
		return model.Session{}, err
	}
	return s.insert(ctx, "start session", sess)
}

// Log records one completed focus round as a closed session.
func (s *Service) Log(ctx context.Context, userID string, req model.LogRequest) (model.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Session{}, invalid("userId", "is required")
	}
	if req.StudyPeriod <= 0 {
		return model.Session{}, invalid("studyPeriod", "must be a positive number")
	}
	if req.CompletedRounds < 0 {
		return model.Session{}, invalid("completedRounds", "must not be negative")
	}
	if req.StartTime != nil && req.EndTime != nil && req.EndTime.Before(*req.StartTime) {
		return model.Session{}, invalid("endTime", "must not be before startTime")
	}
	sess := model.Session{
		UserID:          userID,
		StudyPeriod:     req.StudyPeriod,
		ShortBreak:      withDefault(req.ShortBreak, model.DefaultShortBreak),
		LongBreak:       withDefault(req.LongBreak, model.DefaultLongBreak),
		CompletedRounds: req.CompletedRounds,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Purpose:         req.Purpose,
		Tag:             req.Tag,
	}
	if err := validateBreaks(sess); err != nil {
		return model.Session{}, err
	}
	return s.insert(ctx, "log session", sess)
}

// List returns records newest first. An empty userID lists all records.
func (s *Service) List(ctx context.Context, userID string) ([]model.Session, error) {
	sessions, err := s.store.ListSessions(ctx, strings.TrimSpace(userID))
	if err != nil {
		s.logger.Error("list sessions failed", "user_id", userID, "error", err)
		return nil, &PersistenceError{Op: "list sessions", Err: err}
	}
	return sessions, nil
}

// Stats summarizes a user's records.
func (s *Service) Stats(ctx context.Context, userID string) (model.Stats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Stats{}, invalid("userId", "is required")
	}
	out, err := stats.ForUser(ctx, s.store, userID)
	if err != nil {
		s.logger.Error("compute stats failed", "user_id", userID, "error", err)
		return model.Stats{}, &PersistenceError{Op: "compute stats", Err: err}
	}
	return out, nil
}

func (s *Service) insert(ctx context.Context, op string, sess model.Session) (model.Session, error) {
	saved, err := s.store.InsertSession(ctx, sess)
	if err != nil {
		s.logger.Error(op+" failed", "user_id", sess.UserID, "error", err)
		return model.Session{}, &PersistenceError{Op: op, Err: err}
	}
	s.logger.Info(op,
		"id", saved.ID,
		"user_id", saved.UserID,
		"study_period", saved.StudyPeriod,
		"completed_rounds", saved.CompletedRounds,
	)
	return saved, nil
}

func validateBreaks(sess model.Session) error {
	if sess.ShortBreak <= 0 {
		return invalid("shortBreak", "must be a positive number")
	}
	if sess.LongBreak <= 0 {
		return invalid("longBreak", "must be a positive number")
	}
	return nil
}

func withDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
