// Package repository provides data persistence implementations for artist entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/artist/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/database"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// PostgreSQLArtistRepository handles artist profile persistence for PostgreSQL
type PostgreSQLArtistRepository struct {
	db *sql.DB
}

// NewPostgreSQLArtistRepository creates a new PostgreSQLArtistRepository
func NewPostgreSQLArtistRepository(db *sql.DB) *PostgreSQLArtistRepository {
	return &PostgreSQLArtistRepository{
		db: db,
	}
}

// Create inserts a new artist profile
func (r *PostgreSQLArtistRepository) Create(ctx context.Context, profile *domain.ArtistProfile) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO artist_profiles (id, account_id, name, bio, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, profile.ID, profile.AccountID, profile.Name, profile.Bio)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return apperrors.Wrap(err, "failed to create artist profile")
	}
	return nil
}

// GetByID retrieves an artist profile by ID
func (r *PostgreSQLArtistRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ArtistProfile, error) {
	var profile domain.ArtistProfile
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, account_id, name, bio, created_at, updated_at
			  FROM artist_profiles WHERE id = $1`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&profile.ID, &profile.AccountID, &profile.Name, &profile.Bio, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get artist profile by id")
	}

	return &profile, nil
}

// GetByName retrieves an artist profile by name, restricted to profiles whose
// owning account is alive. A blocked or soft-deleted owner hides the profile.
func (r *PostgreSQLArtistRepository) GetByName(ctx context.Context, name string) (*domain.ArtistProfile, error) {
	var profile domain.ArtistProfile
	querier := database.GetTx(ctx, r.db)

	query := `SELECT p.id, p.account_id, p.name, p.bio, p.created_at, p.updated_at
			  FROM artist_profiles p
			  INNER JOIN accounts a ON a.id = p.account_id
			  WHERE p.name = $1 AND a.is_blocked = FALSE AND a.deleted_at IS NULL`

	err := querier.QueryRowContext(ctx, query, name).Scan(
		&profile.ID, &profile.AccountID, &profile.Name, &profile.Bio, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get artist profile by name")
	}

	return &profile, nil
}

// Update persists the profile's mutable fields
func (r *PostgreSQLArtistRepository) Update(ctx context.Context, profile *domain.ArtistProfile) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE artist_profiles
			  SET name = $1, bio = $2, updated_at = NOW()
			  WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, profile.Name, profile.Bio, profile.ID)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return apperrors.Wrap(err, "failed to update artist profile")
	}
	return nil
}

// Delete removes an artist profile and reports how many rows were removed.
// Zero rows is not an error: compensation retries must stay idempotent.
func (r *PostgreSQLArtistRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM artist_profiles WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete artist profile")
	}

	return result.RowsAffected()
}

// mapUniqueViolation translates unique constraint violations into the typed
// conflicts callers branch on, or returns nil for other errors.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	errMsg := strings.ToLower(err.Error())
	if !strings.Contains(errMsg, "duplicate key") && !strings.Contains(errMsg, "unique constraint") &&
		!strings.Contains(errMsg, "duplicate entry") {
		return nil
	}
	if strings.Contains(errMsg, "account_id") {
		return domain.ErrProfileExists
	}
	return domain.ErrArtistNameTaken
}
