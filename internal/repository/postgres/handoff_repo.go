package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

type HandoffRepo struct {
	DB DBTX
}

func NewHandoffRepo(db DBTX) *HandoffRepo {
	return &HandoffRepo{DB: db}
}

// Insert stores a new handoff row. A clash on the code column is reported as
// domain.ErrCodeCollision so the caller can regenerate.
func (r *HandoffRepo) Insert(ctx context.Context, h *domain.HandoffCode) error {
	query := `
	INSERT INTO handoff_codes (id, code, subject_id, access_token, refresh_token, created_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.DB.ExecContext(ctx, query, h.ID, h.Code, h.SubjectID, h.AccessToken, h.RefreshToken, h.CreatedAt, h.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrCodeCollision
		}
		return errors.Wrap(err, "failed to insert handoff code")
	}
	return nil
}

// Consume marks the code consumed if, at the moment of the update, it is
// still unconsumed and unexpired. It returns nil credentials when no row
// matched; the affected row is the only signal of success.
func (r *HandoffRepo) Consume(ctx context.Context, code string, now time.Time) (*domain.Credentials, error) {
	query := `
	UPDATE handoff_codes
	SET consumed_at = $2
	WHERE code = $1 AND consumed_at IS NULL AND expires_at > $2
	RETURNING access_token, refresh_token;
	`
	var creds domain.Credentials
	err := r.DB.QueryRowContext(ctx, query, code, now).Scan(&creds.AccessToken, &creds.RefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to consume handoff code")
	}
	return &creds, nil
}

// GetByCode returns the row metadata without credential payloads, or nil when
// absent.
func (r *HandoffRepo) GetByCode(ctx context.Context, code string) (*domain.HandoffCode, error) {
	query := `
	SELECT id, code, subject_id, created_at, expires_at, consumed_at
	FROM handoff_codes
	WHERE code = $1;
	`
	var h domain.HandoffCode
	var consumedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, code).Scan(
		&h.ID,
		&h.Code,
		&h.SubjectID,
		&h.CreatedAt,
		&h.ExpiresAt,
		&consumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get handoff code")
	}
	if consumedAt.Valid {
		t := consumedAt.Time
		h.ConsumedAt = &t
	}
	return &h, nil
}

// DeleteExpired removes every row whose expiry is before now.
func (r *HandoffRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM handoff_codes WHERE expires_at < $1;`
	result, err := r.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired handoff codes")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return rowsAffected, nil
}

// DeleteExpiredCode removes a single code only if it has already expired.
func (r *HandoffRepo) DeleteExpiredCode(ctx context.Context, code string, now time.Time) error {
	query := `DELETE FROM handoff_codes WHERE code = $1 AND expires_at <= $2;`
	if _, err := r.DB.ExecContext(ctx, query, code, now); err != nil {
		return errors.Wrap(err, "failed to delete expired handoff code")
	}
	return nil
}
