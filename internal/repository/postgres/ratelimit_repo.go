package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// RateLimitRepo keeps one row per admitted action and evaluates the trailing
// window on every check.
type RateLimitRepo struct {
	DB *sql.DB
}

func NewRateLimitRepo(db *sql.DB) *RateLimitRepo {
	return &RateLimitRepo{DB: db}
}

// CheckAndRecord counts events for (subjectID, action) newer than now-window
// and records a new event when the count is below maxCount. A transaction-scoped
// advisory lock on the key serializes concurrent callers for the same key.
func (r *RateLimitRepo) CheckAndRecord(ctx context.Context, subjectID, action string, maxCount int, window time.Duration, now time.Time) (bool, error) {
	admitted := false

	err := WithTx(ctx, r.DB, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, action+":"+subjectID); err != nil {
			return errors.Wrap(err, "failed to lock rate limit key")
		}

		var count int
		countQuery := `
		SELECT COUNT(*)
		FROM rate_limit_events
		WHERE subject_id = $1 AND action = $2 AND occurred_at > $3;
		`
		if err := tx.QueryRowContext(ctx, countQuery, subjectID, action, now.Add(-window)).Scan(&count); err != nil {
			return errors.Wrap(err, "failed to count rate limit events")
		}
		if count >= maxCount {
			return nil
		}

		insertQuery := `
		INSERT INTO rate_limit_events (subject_id, action, occurred_at)
		VALUES ($1, $2, $3);
		`
		if _, err := tx.ExecContext(ctx, insertQuery, subjectID, action, now); err != nil {
			return errors.Wrap(err, "failed to record rate limit event")
		}
		admitted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return admitted, nil
}

// PurgeBefore deletes events that can no longer fall inside any window.
func (r *RateLimitRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM rate_limit_events WHERE occurred_at <= $1;`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge rate limit events")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return rowsAffected, nil
}
