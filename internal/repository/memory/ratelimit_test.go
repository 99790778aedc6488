package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_SlidingWindow(t *testing.T) {
	s := NewRateLimitStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := s.CheckAndRecord(ctx, "u1", "search", 3, time.Minute, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := s.CheckAndRecord(ctx, "u1", "search", 3, time.Minute, t0.Add(59*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	// Only the t=0 event has left the window.
	ok, err = s.CheckAndRecord(ctx, "u1", "search", 3, time.Minute, t0.Add(60*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CheckAndRecord(ctx, "u1", "search", 3, time.Minute, t0.Add(60*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimitStore_KeysAreIndependent(t *testing.T) {
	s := NewRateLimitStore()
	ctx := context.Background()

	ok, _ := s.CheckAndRecord(ctx, "u1", "search", 1, time.Minute, t0)
	assert.True(t, ok)
	ok, _ = s.CheckAndRecord(ctx, "u2", "search", 1, time.Minute, t0)
	assert.True(t, ok)
	ok, _ = s.CheckAndRecord(ctx, "u1", "handoff_redeem", 1, time.Minute, t0)
	assert.True(t, ok)
	ok, _ = s.CheckAndRecord(ctx, "u1", "search", 1, time.Minute, t0)
	assert.False(t, ok)
}

func TestRateLimitStore_ConcurrentNearCeiling(t *testing.T) {
	s := NewRateLimitStore()
	ctx := context.Background()

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.CheckAndRecord(ctx, "u1", "search", 30, time.Minute, t0); ok {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(30), admitted)
}

func TestRateLimitStore_PurgeBefore(t *testing.T) {
	s := NewRateLimitStore()
	ctx := context.Background()

	_, _ = s.CheckAndRecord(ctx, "u1", "search", 10, time.Hour, t0)
	_, _ = s.CheckAndRecord(ctx, "u1", "search", 10, time.Hour, t0.Add(2*time.Minute))

	n, err := s.PurgeBefore(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
