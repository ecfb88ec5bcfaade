// Package repository provides data persistence implementations for account entities.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/assignment-sets/audio-saas-backend/internal/account/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/database"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// PostgreSQLAccountRepository handles account persistence for PostgreSQL
type PostgreSQLAccountRepository struct {
	db *sql.DB
}

// NewPostgreSQLAccountRepository creates a new PostgreSQLAccountRepository
func NewPostgreSQLAccountRepository(db *sql.DB) *PostgreSQLAccountRepository {
	return &PostgreSQLAccountRepository{
		db: db,
	}
}

// Upsert inserts an account or refreshes its profile fields. The identity
// provider is the source of truth, so replays of the sync webhook are safe.
func (r *PostgreSQLAccountRepository) Upsert(ctx context.Context, account *domain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO accounts (id, email, display_name, is_blocked, created_at, updated_at)
			  VALUES ($1, $2, $3, FALSE, NOW(), NOW())
			  ON CONFLICT (id) DO UPDATE
			  SET email = EXCLUDED.email, display_name = EXCLUDED.display_name, updated_at = NOW()`

	_, err := querier.ExecContext(ctx, query, account.ID, account.Email, account.DisplayName)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert account")
	}
	return nil
}

// GetByID retrieves an account regardless of its lifecycle state
func (r *PostgreSQLAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, email, display_name, is_blocked, deleted_at, created_at, updated_at
			  FROM accounts WHERE id = $1`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.IsBlocked,
		&account.DeletedAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get account by id")
	}

	return &account, nil
}

// GetActiveByID retrieves an account that is neither blocked nor soft-deleted
func (r *PostgreSQLAccountRepository) GetActiveByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, email, display_name, is_blocked, deleted_at, created_at, updated_at
			  FROM accounts
			  WHERE id = $1 AND is_blocked = FALSE AND deleted_at IS NULL`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.IsBlocked,
		&account.DeletedAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get active account by id")
	}

	return &account, nil
}

// Update persists the account's profile fields
func (r *PostgreSQLAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE accounts
			  SET email = $1, display_name = $2, updated_at = NOW()
			  WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, account.Email, account.DisplayName, account.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update account")
	}
	return nil
}

// SoftDelete blocks the account and records its deletion time
func (r *PostgreSQLAccountRepository) SoftDelete(ctx context.Context, id string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE accounts
			  SET is_blocked = TRUE, deleted_at = NOW(), updated_at = NOW()
			  WHERE id = $1`

	_, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to soft-delete account")
	}
	return nil
}

// HardDelete removes the account row and reports how many rows were removed.
// Zero rows is not an error: cleanup retries must stay idempotent.
func (r *PostgreSQLAccountRepository) HardDelete(ctx context.Context, id string) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM accounts WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to hard-delete account")
	}

	return result.RowsAffected()
}
