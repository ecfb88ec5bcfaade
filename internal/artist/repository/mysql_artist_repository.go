// Package repository provides data persistence implementations for artist entities.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/artist/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/database"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// MySQLArtistRepository handles artist profile persistence for MySQL
type MySQLArtistRepository struct {
	db *sql.DB
}

// NewMySQLArtistRepository creates a new MySQLArtistRepository
func NewMySQLArtistRepository(db *sql.DB) *MySQLArtistRepository {
	return &MySQLArtistRepository{
		db: db,
	}
}

// Create inserts a new artist profile
func (r *MySQLArtistRepository) Create(ctx context.Context, profile *domain.ArtistProfile) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO artist_profiles (id, account_id, name, bio, created_at, updated_at)
			  VALUES (?, ?, ?, ?, NOW(), NOW())`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := profile.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, idBytes, profile.AccountID, profile.Name, profile.Bio)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return apperrors.Wrap(err, "failed to create artist profile")
	}
	return nil
}

// GetByID retrieves an artist profile by ID
func (r *MySQLArtistRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ArtistProfile, error) {
	var profile domain.ArtistProfile
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, account_id, name, bio, created_at, updated_at
			  FROM artist_profiles WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var scannedID []byte
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(
		&scannedID, &profile.AccountID, &profile.Name, &profile.Bio, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get artist profile by id")
	}

	if err := profile.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, err
	}

	return &profile, nil
}

// GetByName retrieves an artist profile by name, restricted to profiles whose
// owning account is alive. A blocked or soft-deleted owner hides the profile.
func (r *MySQLArtistRepository) GetByName(ctx context.Context, name string) (*domain.ArtistProfile, error) {
	var profile domain.ArtistProfile
	querier := database.GetTx(ctx, r.db)

	query := `SELECT p.id, p.account_id, p.name, p.bio, p.created_at, p.updated_at
			  FROM artist_profiles p
			  INNER JOIN accounts a ON a.id = p.account_id
			  WHERE p.name = ? AND a.is_blocked = FALSE AND a.deleted_at IS NULL`

	var scannedID []byte
	err := querier.QueryRowContext(ctx, query, name).Scan(
		&scannedID, &profile.AccountID, &profile.Name, &profile.Bio, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get artist profile by name")
	}

	if err := profile.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, err
	}

	return &profile, nil
}

// Update persists the profile's mutable fields
func (r *MySQLArtistRepository) Update(ctx context.Context, profile *domain.ArtistProfile) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE artist_profiles
			  SET name = ?, bio = ?, updated_at = NOW()
			  WHERE id = ?`

	idBytes, err := profile.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, profile.Name, profile.Bio, idBytes)
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
func (r *MySQLArtistRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM artist_profiles WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return 0, err
	}

	result, err := querier.ExecContext(ctx, query, idBytes)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete artist profile")
	}

	return result.RowsAffected()
}
