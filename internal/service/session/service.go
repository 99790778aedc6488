package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/pkg/auth"
	"github.com/iamasit07/sessionbridge/pkg/clock"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/sirupsen/logrus"
)

const sessionKeyPrefix = "session:"
const blockedSessionKeyPrefix = "blocked_session:"

// Sessions are issued and revoked by the identity provider, so cached rows
// are kept only briefly.
const sessionCacheTTL = time.Minute

type SessionRepository interface {
	GetSessionByID(ctx context.Context, sessionID string) (*domain.UserSession, error)
	UpdateSessionActivity(ctx context.Context, sessionID string) error
}

type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// AuthService validates caller tokens against the session table
type AuthService struct {
	repo   SessionRepository
	cache  CacheRepository // Optional, can be nil
	secret string
	clock  clock.Clock
	log    *logrus.Entry
}

func NewAuthService(repo SessionRepository, cache CacheRepository, jwtSecret string, clk clock.Clock, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		repo:   repo,
		cache:  cache,
		secret: jwtSecret,
		clock:  clk,
		log:    logger.Component(log, "session"),
	}
}

// IsSessionBlocked checks if a session ID is in the blocklist.
func (s *AuthService) IsSessionBlocked(ctx context.Context, sessionID string) bool {
	if s.cache == nil {
		return false
	}
	val, err := s.cache.Get(ctx, blockedSessionKeyPrefix+sessionID)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read session blocklist")
		return false
	}
	return val != ""
}

// ValidateToken checks the JWT signature, the blocklist, and finally that the
// session row is still active and unexpired.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := auth.ValidateAccessToken(s.secret, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if s.IsSessionBlocked(ctx, claims.SessionID) {
		return nil, fmt.Errorf("%w: session is revoked", domain.ErrUnauthenticated)
	}

	session, err := s.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: session lookup failed: %v", domain.ErrTransientStorage, err)
	}
	if session == nil || !session.IsActive {
		return nil, fmt.Errorf("%w: session invalidated", domain.ErrUnauthenticated)
	}
	if s.clock.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", domain.ErrUnauthenticated)
	}
	if session.UserID != claims.UserID {
		return nil, fmt.Errorf("%w: session does not belong to token subject", domain.ErrUnauthenticated)
	}
	return claims, nil
}

func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domain.UserSession, error) {
	if s.cache != nil {
		if session := s.getSessionFromCache(ctx, sessionID); session != nil {
			return session, nil
		}
	}
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session != nil && s.cache != nil {
		if err := s.setSessionInCache(ctx, session); err != nil {
			s.log.WithError(err).Warn("Failed to populate session cache")
		}
	}
	return session, nil
}

func (s *AuthService) UpdateSessionActivity(ctx context.Context, sessionID string) error {
	return s.repo.UpdateSessionActivity(ctx, sessionID)
}

func (s *AuthService) setSessionInCache(ctx context.Context, session *domain.UserSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, sessionKeyPrefix+session.SessionID, data, sessionCacheTTL)
}

func (s *AuthService) getSessionFromCache(ctx context.Context, sessionID string) *domain.UserSession {
	data, err := s.cache.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil || data == "" {
		return nil
	}
	var session domain.UserSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil
	}
	return &session
}
