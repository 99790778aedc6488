package memory

import (
	"context"
	"sync"
	"time"
)

type RateLimitStore struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{events: make(map[string][]time.Time)}
}

func (s *RateLimitStore) CheckAndRecord(ctx context.Context, subjectID, action string, maxCount int, window time.Duration, now time.Time) (bool, error) {
	key := action + ":" + subjectID

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[key][:0]
	for _, at := range s.events[key] {
		if now.Sub(at) < window {
			kept = append(kept, at)
		}
	}
	if len(kept) >= maxCount {
		s.events[key] = kept
		return false, nil
	}
	s.events[key] = append(kept, now)
	return true, nil
}

func (s *RateLimitStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, events := range s.events {
		kept := events[:0]
		for _, at := range events {
			if at.After(cutoff) {
				kept = append(kept, at)
			} else {
				n++
			}
		}
		if len(kept) == 0 {
			delete(s.events, key)
		} else {
			s.events[key] = kept
		}
	}
	return n, nil
}
