// Package memory holds in-process stores. Every mutation runs under a single
// mutex, which gives the same conditional semantics as the SQL statements.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iamasit07/sessionbridge/internal/domain"
)

type HandoffStore struct {
	mu   sync.Mutex
	rows map[string]domain.HandoffCode
}

func NewHandoffStore() *HandoffStore {
	return &HandoffStore{rows: make(map[string]domain.HandoffCode)}
}

func (s *HandoffStore) Insert(ctx context.Context, h *domain.HandoffCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[h.Code]; exists {
		return domain.ErrCodeCollision
	}
	s.rows[h.Code] = *h
	return nil
}

func (s *HandoffStore) Consume(ctx context.Context, code string, now time.Time) (*domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[code]
	if !ok || !row.Redeemable(now) {
		return nil, nil
	}
	consumedAt := now
	row.ConsumedAt = &consumedAt
	s.rows[code] = row

	return &domain.Credentials{AccessToken: row.AccessToken, RefreshToken: row.RefreshToken}, nil
}

func (s *HandoffStore) GetByCode(ctx context.Context, code string) (*domain.HandoffCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[code]
	if !ok {
		return nil, nil
	}
	row.AccessToken, row.RefreshToken = "", ""
	return &row, nil
}

func (s *HandoffStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for code, row := range s.rows {
		if row.ExpiresAt.Before(now) {
			delete(s.rows, code)
			n++
		}
	}
	return n, nil
}

func (s *HandoffStore) DeleteExpiredCode(ctx context.Context, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.rows[code]; ok && !now.Before(row.ExpiresAt) {
		delete(s.rows, code)
	}
	return nil
}

// Len reports the number of stored rows.
func (s *HandoffStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
