package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iamasit07/sessionbridge/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestHandoffRepo_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)
	h := domain.NewHandoffCode("AB12CD34", 7, "a1", "r1", t0)

	mock.ExpectExec(`INSERT INTO handoff_codes`).
		WithArgs(sqlmock.AnyArg(), "AB12CD34", int64(7), "a1", "r1", t0, t0.Add(domain.HandoffTTL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), h))
}

func TestHandoffRepo_Insert_Collision(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)
	h := domain.NewHandoffCode("AB12CD34", 7, "a1", "r1", t0)

	mock.ExpectExec(`INSERT INTO handoff_codes`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := repo.Insert(context.Background(), h)
	assert.True(t, errors.Is(err, domain.ErrCodeCollision))
}

func TestHandoffRepo_Insert_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)
	h := domain.NewHandoffCode("AB12CD34", 7, "a1", "r1", t0)

	mock.ExpectExec(`INSERT INTO handoff_codes`).WillReturnError(errors.New("db down"))

	err := repo.Insert(context.Background(), h)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrCodeCollision))
	assert.Contains(t, err.Error(), "failed to insert handoff code")
}

func TestHandoffRepo_Consume_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)

	mock.ExpectQuery(`(?s)UPDATE handoff_codes\s+SET consumed_at = \$2\s+WHERE code = \$1 AND consumed_at IS NULL AND expires_at > \$2\s+RETURNING access_token, refresh_token`).
		WithArgs("AB12CD34", t0).
		WillReturnRows(sqlmock.NewRows([]string{"access_token", "refresh_token"}).AddRow("a1", "r1"))

	creds, err := repo.Consume(context.Background(), "AB12CD34", t0)
	require.NoError(t, err)
	assert.Equal(t, &domain.Credentials{AccessToken: "a1", RefreshToken: "r1"}, creds)
}

func TestHandoffRepo_Consume_NoRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)

	mock.ExpectQuery(`UPDATE handoff_codes`).
		WithArgs("AB12CD34", t0).
		WillReturnRows(sqlmock.NewRows([]string{"access_token", "refresh_token"}))

	creds, err := repo.Consume(context.Background(), "AB12CD34", t0)
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestHandoffRepo_Consume_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)

	mock.ExpectQuery(`UPDATE handoff_codes`).WillReturnError(errors.New("timeout"))

	_, err := repo.Consume(context.Background(), "AB12CD34", t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to consume handoff code")
}

func TestHandoffRepo_GetByCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)
	id := uuid.New()
	consumed := t0.Add(time.Minute)

	mock.ExpectQuery(`SELECT id, code, subject_id, created_at, expires_at, consumed_at\s+FROM handoff_codes`).
		WithArgs("AB12CD34").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "subject_id", "created_at", "expires_at", "consumed_at"}).
			AddRow(id.String(), "AB12CD34", int64(7), t0, t0.Add(domain.HandoffTTL), consumed))

	h, err := repo.GetByCode(context.Background(), "AB12CD34")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, id, h.ID)
	assert.Equal(t, int64(7), h.SubjectID)
	require.NotNil(t, h.ConsumedAt)
	assert.Equal(t, consumed, *h.ConsumedAt)
	assert.Empty(t, h.AccessToken)
}

func TestHandoffRepo_GetByCode_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)

	mock.ExpectQuery(`FROM handoff_codes`).
		WithArgs("MISSING1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "subject_id", "created_at", "expires_at", "consumed_at"}))

	h, err := repo.GetByCode(context.Background(), "MISSING1")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestHandoffRepo_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)

	mock.ExpectExec(`DELETE FROM handoff_codes WHERE expires_at < \$1`).
		WithArgs(t0).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestHandoffRepo_DeleteExpiredCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffRepo(db)

	mock.ExpectExec(`DELETE FROM handoff_codes WHERE code = \$1 AND expires_at <= \$2`).
		WithArgs("AB12CD34", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteExpiredCode(context.Background(), "AB12CD34", t0))
}
