package postgres

import (
	"context"
	"database/sql"

	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/pkg/errors"
)

type SessionRepo struct {
	DB DBTX
}

func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{DB: db}
}

// GetSessionByID retrieves a session by session_id
func (r *SessionRepo) GetSessionByID(ctx context.Context, sessionID string) (*domain.UserSession, error) {
	query := `
	SELECT id, user_id, session_id, device_info, ip_address, created_at, expires_at, last_activity, is_active
	FROM user_sessions
	WHERE session_id = $1;
	`
	var session domain.UserSession
	err := r.DB.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.SessionID,
		&session.DeviceInfo,
		&session.IPAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastActivity,
		&session.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}
	return &session, nil
}

// UpdateSessionActivity updates the last_activity timestamp
func (r *SessionRepo) UpdateSessionActivity(ctx context.Context, sessionID string) error {
	query := `
	UPDATE user_sessions
	SET last_activity = CURRENT_TIMESTAMP
	WHERE session_id = $1;
	`
	_, err := r.DB.ExecContext(ctx, query, sessionID)
	if err != nil {
		return errors.Wrap(err, "failed to update session activity")
	}
	return nil
}

// CleanupOldSessions deletes inactive or expired sessions older than the given number of days
func (r *SessionRepo) CleanupOldSessions(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
	DELETE FROM user_sessions
	WHERE (is_active = FALSE OR expires_at < NOW())
	AND created_at < NOW() - INTERVAL '1 day' * $1;
	`
	result, err := r.DB.ExecContext(ctx, query, olderThanDays)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old sessions")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}

	return rowsAffected, nil
}
