package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/stretchr/testify/assert"
)

type counter struct {
	calls int32
	err   error
}

func (c *counter) Sweep(ctx context.Context) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	return 2, c.err
}

func (c *counter) Purge(ctx context.Context) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	return 3, c.err
}

type sessionCounter struct {
	days int
}

func (s *sessionCounter) CleanupOldSessions(ctx context.Context, daysToKeep int) (int64, error) {
	s.days = daysToKeep
	return 1, nil
}

func TestRunOnce_CallsEveryStep(t *testing.T) {
	h, rl, sess := &counter{}, &counter{}, &sessionCounter{}
	w := NewWorker(h, rl, sess, time.Minute, 30, logger.Discard())

	w.RunOnce(context.Background())

	assert.Equal(t, int32(1), h.calls)
	assert.Equal(t, int32(1), rl.calls)
	assert.Equal(t, 30, sess.days)
}

func TestRunOnce_ContinuesAfterFailure(t *testing.T) {
	h := &counter{err: errors.New("storage unavailable")}
	rl := &counter{}
	w := NewWorker(h, rl, nil, time.Minute, 30, logger.Discard())

	w.RunOnce(context.Background())

	assert.Equal(t, int32(1), rl.calls)
}

func TestStart_TicksUntilCancelled(t *testing.T) {
	h, rl := &counter{}, &counter{}
	w := NewWorker(h, rl, nil, 10*time.Millisecond, 0, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&h.calls) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
}
