package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assignment-sets/audio-saas-backend/internal/account/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})

	return db, mock
}

func accountColumns() []string {
	return []string{"id", "email", "display_name", "is_blocked", "deleted_at", "created_at", "updated_at"}
}

func TestPostgreSQLAccountRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAccountRepository(db)

	account := &domain.Account{
		ID:          "auth0|abc123",
		Email:       "artist@example.com",
		DisplayName: "Artist",
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs(account.ID, account.Email, account.DisplayName).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), account)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAccountRepository_GetActiveByID(t *testing.T) {
	t.Run("Active", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLAccountRepository(db)

		now := time.Now()
		rows := sqlmock.NewRows(accountColumns()).
			AddRow("auth0|abc123", "artist@example.com", "Artist", false, nil, now, now)

		mock.ExpectQuery(regexp.QuoteMeta("is_blocked = FALSE AND deleted_at IS NULL")).
			WithArgs("auth0|abc123").
			WillReturnRows(rows)

		account, err := repo.GetActiveByID(context.Background(), "auth0|abc123")
		require.NoError(t, err)
		assert.Equal(t, "auth0|abc123", account.ID)
		assert.False(t, account.IsBlocked)
	})

	t.Run("BlockedOrDeletedReadsAsNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLAccountRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("is_blocked = FALSE AND deleted_at IS NULL")).
			WithArgs("auth0|gone").
			WillReturnError(sql.ErrNoRows)

		account, err := repo.GetActiveByID(context.Background(), "auth0|gone")
		assert.Nil(t, account)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestPostgreSQLAccountRepository_SoftDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLAccountRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET is_blocked = TRUE, deleted_at = NOW()")).
		WithArgs("auth0|abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SoftDelete(context.Background(), "auth0|abc123")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAccountRepository_HardDelete(t *testing.T) {
	t.Run("Deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLAccountRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accounts")).
			WithArgs("auth0|abc123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		rows, err := repo.HardDelete(context.Background(), "auth0|abc123")
		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("AlreadyGone", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLAccountRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accounts")).
			WithArgs("auth0|abc123").
			WillReturnResult(sqlmock.NewResult(0, 0))

		rows, err := repo.HardDelete(context.Background(), "auth0|abc123")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), rows)
	})
}
