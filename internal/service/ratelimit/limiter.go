package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/pkg/clock"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Actions throttled by the HTTP layer.
const (
	ActionSearch        = "search"
	ActionHandoffRedeem = "handoff_redeem"
)

// Store performs the count-then-record step as one atomic operation.
type Store interface {
	CheckAndRecord(ctx context.Context, subjectID, action string, maxCount int, window time.Duration, now time.Time) (bool, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Policy is the ceiling applied to one action.
type Policy struct {
	MaxCount int
	Window   time.Duration
}

type Limiter struct {
	store    Store
	clock    clock.Clock
	policies map[string]Policy
	log      *logrus.Entry
}

func New(store Store, clk clock.Clock, policies map[string]Policy, log logrus.FieldLogger) *Limiter {
	return &Limiter{
		store:    store,
		clock:    clk,
		policies: policies,
		log:      logger.Component(log, "ratelimit"),
	}
}

// CheckAndRecord admits the action when fewer than maxCount events for
// (subjectID, action) fall inside the trailing window, recording it. Denied
// attempts are not recorded.
func (l *Limiter) CheckAndRecord(ctx context.Context, subjectID, action string, maxCount, windowMinutes int) (bool, error) {
	return l.check(ctx, subjectID, action, Policy{MaxCount: maxCount, Window: time.Duration(windowMinutes) * time.Minute})
}

// Allow applies the configured policy for action. It returns an error wrapping
// domain.ErrRateLimited on denial.
func (l *Limiter) Allow(ctx context.Context, subjectID, action string) error {
	policy, ok := l.policies[action]
	if !ok {
		return fmt.Errorf("no rate limit policy for action %q", action)
	}
	admitted, err := l.check(ctx, subjectID, action, policy)
	if err != nil {
		return err
	}
	if !admitted {
		l.log.WithFields(logrus.Fields{"subject_id": subjectID, "action": action}).Info("Rate limit exceeded")
		return fmt.Errorf("%w: at most %d %s requests per %s", domain.ErrRateLimited, policy.MaxCount, action, policy.Window)
	}
	return nil
}

// Policy returns the configured policy for action.
func (l *Limiter) Policy(action string) (Policy, bool) {
	p, ok := l.policies[action]
	return p, ok
}

// Purge drops events older than the longest configured window.
func (l *Limiter) Purge(ctx context.Context) (int64, error) {
	var longest time.Duration
	for _, p := range l.policies {
		if p.Window > longest {
			longest = p.Window
		}
	}
	n, err := l.store.PurgeBefore(ctx, l.clock.Now().Add(-longest))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrTransientStorage, err)
	}
	return n, nil
}

func (l *Limiter) check(ctx context.Context, subjectID, action string, policy Policy) (bool, error) {
	if subjectID == "" || action == "" {
		return false, fmt.Errorf("%w: subject and action are required", domain.ErrInvalidInput)
	}
	if policy.MaxCount < 1 || policy.Window <= 0 {
		return false, fmt.Errorf("%w: rate limit needs a positive ceiling and window", domain.ErrInvalidInput)
	}

	admitted, err := l.store.CheckAndRecord(ctx, subjectID, action, policy.MaxCount, policy.Window, l.clock.Now())
	if err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{"subject_id": subjectID, "action": action}).Error("Rate limit store failed")
		return false, fmt.Errorf("%w: %v", domain.ErrTransientStorage, err)
	}
	return admitted, nil
}
