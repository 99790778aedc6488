package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/iamasit07/sessionbridge/pkg/auth"
	"github.com/iamasit07/sessionbridge/pkg/httputil"
	"github.com/sirupsen/logrus"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey    = "user_id"
	UsernameKey  = "username"
	SessionIDKey = "session_id"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
	UpdateSessionActivity(ctx context.Context, sessionID string) error
}

// ErrorWriter renders an error as the standard JSON envelope.
type ErrorWriter func(c *gin.Context, err error)

// AuthMiddleware validates the JWT from the cookie or Authorization header and
// the session row behind it, then exposes the subject to handlers.
func AuthMiddleware(validator TokenValidator, writeError ErrorWriter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := httputil.GetTokenFromRequest(c.Request)
		if err != nil {
			writeError(c, domain.ErrUnauthenticated)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			if domain.KindOf(err) == domain.KindUnauthenticated {
				httputil.ClearAuthCookie(c.Writer)
			}
			writeError(c, err)
			c.Abort()
			return
		}

		// Run in background to not block request
		go func(sessionID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := validator.UpdateSessionActivity(ctx, sessionID); err != nil {
				log.WithError(err).Warn("Failed to update session activity")
			}
		}(claims.SessionID)

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}

// UserID returns the authenticated subject, if any.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id != 0
}
