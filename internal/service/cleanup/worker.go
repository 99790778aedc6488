package cleanup

import (
	"context"
	"time"

	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/sirupsen/logrus"
)

type HandoffSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type RateLimitPurger interface {
	Purge(ctx context.Context) (int64, error)
}

type SessionCleaner interface {
	CleanupOldSessions(ctx context.Context, daysToKeep int) (int64, error)
}

type Worker struct {
	Handoff    HandoffSweeper
	RateLimit  RateLimitPurger
	Sessions   SessionCleaner // Optional, can be nil
	Interval   time.Duration
	DaysToKeep int
	log        *logrus.Entry
}

func NewWorker(h HandoffSweeper, rl RateLimitPurger, sessions SessionCleaner, interval time.Duration, daysToKeep int, log logrus.FieldLogger) *Worker {
	return &Worker{
		Handoff:    h,
		RateLimit:  rl,
		Sessions:   sessions,
		Interval:   interval,
		DaysToKeep: daysToKeep,
		log:        logger.Component(log, "cleanup"),
	}
}

// Start runs one pass immediately and then one per Interval until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		w.RunOnce(ctx)

		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.log.Info("Background worker stopped")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
	w.log.WithField("interval", w.Interval).Info("Background worker started")
}

// RunOnce executes every cleanup step. A failing step is logged and does not
// stop the others.
func (w *Worker) RunOnce(ctx context.Context) {
	w.log.Debug("Starting scheduled cleanup task")

	if n, err := w.Handoff.Sweep(ctx); err != nil {
		w.log.WithError(err).Error("Error sweeping expired handoff codes")
	} else if n > 0 {
		w.log.WithField("deleted", n).Info("Removed expired handoff codes")
	}

	if n, err := w.RateLimit.Purge(ctx); err != nil {
		w.log.WithError(err).Error("Error purging rate limit events")
	} else if n > 0 {
		w.log.WithField("deleted", n).Info("Removed stale rate limit events")
	}

	if w.Sessions == nil || w.DaysToKeep <= 0 {
		return
	}
	if n, err := w.Sessions.CleanupOldSessions(ctx, w.DaysToKeep); err != nil {
		w.log.WithError(err).Error("Error cleaning up DB sessions")
	} else if n > 0 {
		w.log.WithField("deleted", n).Info("Removed expired sessions from database")
	}
}
