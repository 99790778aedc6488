package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/iamasit07/sessionbridge/internal/domain"
	redisrepo "github.com/iamasit07/sessionbridge/internal/repository/redis"
	"github.com/iamasit07/sessionbridge/pkg/auth"
	"github.com/iamasit07/sessionbridge/pkg/clock"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeRepo struct {
	sessions map[string]*domain.UserSession
	lookups  int
	err      error
}

func (f *fakeRepo) GetSessionByID(ctx context.Context, sessionID string) (*domain.UserSession, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[sessionID], nil
}

func (f *fakeRepo) UpdateSessionActivity(ctx context.Context, sessionID string) error {
	return f.err
}

func newRepo(now time.Time) *fakeRepo {
	return &fakeRepo{sessions: map[string]*domain.UserSession{
		"s1": {UserID: 7, SessionID: "s1", IsActive: true, ExpiresAt: now.Add(time.Hour)},
		"s2": {UserID: 7, SessionID: "s2", IsActive: false, ExpiresAt: now.Add(time.Hour)},
		"s3": {UserID: 7, SessionID: "s3", IsActive: true, ExpiresAt: now.Add(-time.Minute)},
	}}
}

func token(t *testing.T, userID int64, sessionID string) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(testSecret, userID, "alice", sessionID, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestValidateToken(t *testing.T) {
	now := time.Now().UTC()
	svc := NewAuthService(newRepo(now), nil, testSecret, clock.NewFake(now), logger.Discard())
	ctx := context.Background()

	claims, err := svc.ValidateToken(ctx, token(t, 7, "s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)

	cases := map[string]string{
		"garbage":         "not-a-jwt",
		"unknown session": token(t, 7, "missing"),
		"inactive":        token(t, 7, "s2"),
		"expired session": token(t, 7, "s3"),
		"wrong subject":   token(t, 8, "s1"),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(ctx, tok)
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	now := time.Now().UTC()
	svc := NewAuthService(newRepo(now), nil, "other-secret", clock.NewFake(now), logger.Discard())

	_, err := svc.ValidateToken(context.Background(), token(t, 7, "s1"))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestValidateToken_RepoFailure(t *testing.T) {
	now := time.Now().UTC()
	repo := newRepo(now)
	repo.err = errors.New("db down")
	svc := NewAuthService(repo, nil, testSecret, clock.NewFake(now), logger.Discard())

	_, err := svc.ValidateToken(context.Background(), token(t, 7, "s1"))
	assert.ErrorIs(t, err, domain.ErrTransientStorage)
}

func TestValidateToken_CacheAndBlocklist(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redisrepo.NewClient(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	defer client.Close()

	now := time.Now().UTC()
	repo := newRepo(now)
	svc := NewAuthService(repo, redisrepo.NewRedisCache(client), testSecret, clock.NewFake(now), logger.Discard())
	ctx := context.Background()
	tok := token(t, 7, "s1")

	_, err = svc.ValidateToken(ctx, tok)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lookups, "second lookup served from cache")
	assert.True(t, mr.Exists("session:s1"))

	require.NoError(t, mr.Set("blocked_session:s1", "1"))
	_, err = svc.ValidateToken(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
