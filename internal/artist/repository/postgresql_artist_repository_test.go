package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assignment-sets/audio-saas-backend/internal/artist/domain"
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

func TestPostgreSQLArtistRepository_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLArtistRepository(db)

		profile := &domain.ArtistProfile{
			ID:        uuid.Must(uuid.NewV7()),
			AccountID: "auth0|abc123",
			Name:      "Night Drive",
		}

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artist_profiles")).
			WithArgs(profile.ID, profile.AccountID, profile.Name, profile.Bio).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), profile)
		assert.NoError(t, err)
	})

	t.Run("NameTaken", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLArtistRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artist_profiles")).
			WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "artist_profiles_name_key"`))

		err := repo.Create(context.Background(), &domain.ArtistProfile{ID: uuid.Must(uuid.NewV7())})
		assert.ErrorIs(t, err, domain.ErrArtistNameTaken)
	})

	t.Run("ProfilePerAccount", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLArtistRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artist_profiles")).
			WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "artist_profiles_account_id_key"`))

		err := repo.Create(context.Background(), &domain.ArtistProfile{ID: uuid.Must(uuid.NewV7())})
		assert.ErrorIs(t, err, domain.ErrProfileExists)
	})
}

func TestPostgreSQLArtistRepository_GetByName(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLArtistRepository(db)

		id := uuid.Must(uuid.NewV7())
		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "account_id", "name", "bio", "created_at", "updated_at"}).
			AddRow(id, "auth0|abc123", "Night Drive", nil, now, now)

		mock.ExpectQuery(regexp.QuoteMeta("INNER JOIN accounts")).
			WithArgs("Night Drive").
			WillReturnRows(rows)

		profile, err := repo.GetByName(context.Background(), "Night Drive")
		require.NoError(t, err)
		assert.Equal(t, id, profile.ID)
		assert.Equal(t, "auth0|abc123", profile.AccountID)
	})

	t.Run("OwnerNotAliveOrMissing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLArtistRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("INNER JOIN accounts")).
			WithArgs("Ghosted").
			WillReturnError(sql.ErrNoRows)

		profile, err := repo.GetByName(context.Background(), "Ghosted")
		assert.Nil(t, profile)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})
}

func TestPostgreSQLArtistRepository_Delete(t *testing.T) {
	t.Run("Deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLArtistRepository(db)

		id := uuid.Must(uuid.NewV7())
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM artist_profiles")).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rows, err := repo.Delete(context.Background(), id)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("AlreadyGone", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLArtistRepository(db)

		id := uuid.Must(uuid.NewV7())
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM artist_profiles")).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		rows, err := repo.Delete(context.Background(), id)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), rows)
	})
}

func TestMapUniqueViolation(t *testing.T) {
	assert.Nil(t, mapUniqueViolation(nil))
	assert.Nil(t, mapUniqueViolation(errors.New("connection reset")))
	assert.ErrorIs(t,
		mapUniqueViolation(errors.New(`Error 1062 (23000): Duplicate entry 'x' for key 'artist_profiles.uq_artist_profiles_account_id'`)),
		domain.ErrProfileExists)
	assert.ErrorIs(t,
		mapUniqueViolation(errors.New(`Error 1062 (23000): Duplicate entry 'x' for key 'artist_profiles.uq_artist_profiles_name'`)),
		domain.ErrArtistNameTaken)
}
