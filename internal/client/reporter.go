package client

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/pomo/internal/model"
	"github.com/verte-zerg/pomo/internal/timer"
)

// Lifecycle is the subset of the API the Reporter calls.
type Lifecycle interface {
	Start(ctx context.Context, userID string, req model.StartRequest) (model.Session, error)
	Log(ctx context.Context, userID string, req model.LogRequest) (model.Session, error)
}

// Reporter forwards timer events to the API without blocking the timer.
// Failed calls are logged and counted; there is no retry queue.
type Reporter struct {
	api     Lifecycle
	userID  string
	logger  *slog.Logger
	timeout time.Duration

	wg        sync.WaitGroup
	failures  atomic.Int64
	delivered atomic.Int64

	// OnLogged is called after a completed round is persisted. Optional.
	OnLogged func(model.Session)
}

// NewReporter creates a Reporter acting for userID.
func NewReporter(api Lifecycle, userID string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{api: api, userID: userID, logger: logger, timeout: defaultTimeout}
}

var _ timer.Sink = (*Reporter)(nil)

// SessionStarted implements timer.Sink.
func (r *Reporter) SessionStarted(ev timer.StartEvent) {
	start := ev.StartTime
	req := model.StartRequest{
		StudyPeriod: ev.Config.StudyPeriod,
		ShortBreak:  ev.Config.ShortBreak,
		LongBreak:   ev.Config.LongBreak,
		StartTime:   &start,
		Purpose:     ev.Config.Purpose,
		Tag:         ev.Config.Tag,
	}
	r.dispatch("start", func(ctx context.Context) error {
		_, err := r.api.Start(ctx, r.userID, req)
		return err
	})
}

// SessionCompleted implements timer.Sink.
func (r *Reporter) SessionCompleted(ev timer.CompleteEvent) {
	start, end := ev.StartTime, ev.EndTime
	req := model.LogRequest{
		StudyPeriod:     ev.Config.StudyPeriod,
		ShortBreak:      ev.Config.ShortBreak,
		LongBreak:       ev.Config.LongBreak,
		CompletedRounds: ev.CompletedRounds,
		EndTime:         &end,
		Purpose:         ev.Config.Purpose,
		Tag:             ev.Config.Tag,
	}
	if !start.IsZero() {
		req.StartTime = &start
	}
	r.dispatch("log", func(ctx context.Context) error {
		sess, err := r.api.Log(ctx, r.userID, req)
		if err == nil && r.OnLogged != nil {
			r.OnLogged(sess)
		}
		return err
	})
}

// Failures returns the number of lifecycle calls that failed.
func (r *Reporter) Failures() int64 {
	return r.failures.Load()
}

// Delivered returns the number of lifecycle calls that succeeded.
func (r *Reporter) Delivered() int64 {
	return r.delivered.Load()
}

// Wait blocks until in-flight calls finish or ctx is done.
func (r *Reporter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) dispatch(op string, call func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := call(ctx); err != nil {
			n := r.failures.Add(1)
			r.logger.Error("lifecycle call failed",
				"op", op,
				"user_id", r.userID,
				"failures", n,
				"error", err,
			)
			return
		}
		r.delivered.Add(1)
		r.logger.Debug("lifecycle call delivered", "op", op, "user_id", r.userID)
	}()
}
