// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/database"
	"github.com/assignment-sets/audio-saas-backend/internal/outbox/domain"
)

// PostgreSQLOutboxEntryRepository handles outbox entry persistence for PostgreSQL
type PostgreSQLOutboxEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEntryRepository creates a new PostgreSQLOutboxEntryRepository
func NewPostgreSQLOutboxEntryRepository(db *sql.DB) *PostgreSQLOutboxEntryRepository {
	return &PostgreSQLOutboxEntryRepository{
		db: db,
	}
}

// Create inserts a new outbox entry
func (r *PostgreSQLOutboxEntryRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_entries (id, intent_type, payload, status, attempts, last_error, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, entry.ID, entry.IntentType, entry.Payload, entry.Status,
		entry.Attempts, entry.LastError)

	return err
}

// GetByID retrieves an outbox entry by its identifier
func (r *PostgreSQLOutboxEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, intent_type, payload, status, attempts, last_error, created_at, updated_at
			  FROM outbox_entries
			  WHERE id = $1`

	var entry domain.OutboxEntry
	err := querier.QueryRowContext(ctx, query, id).Scan(&entry.ID, &entry.IntentType, &entry.Payload,
		&entry.Status, &entry.Attempts, &entry.LastError, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	return &entry, nil
}

// MarkProcessing claims an entry for processing with a conditional update. It
// returns true when this call won the claim and false when the entry was
// already terminal or held by another worker. The claim is a lease: a
// PROCESSING row whose last update predates reclaimBefore is treated as
// abandoned and may be reclaimed.
func (r *PostgreSQLOutboxEntryRepository) MarkProcessing(
	ctx context.Context,
	id uuid.UUID,
	reclaimBefore time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_entries
			  SET status = $1, attempts = attempts + 1, updated_at = NOW()
			  WHERE id = $2 AND (status IN ($3, $4) OR (status = $1 AND updated_at < $5))`

	result, err := querier.ExecContext(ctx, query, domain.StatusProcessing, id,
		domain.StatusPending, domain.StatusFailed, reclaimBefore)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Update persists the entry's status and last error. Intent type, payload and
// attempt count are immutable outside MarkProcessing.
func (r *PostgreSQLOutboxEntryRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_entries
			  SET status = $1, last_error = $2, updated_at = NOW()
			  WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, entry.Status, entry.LastError, entry.ID)

	return err
}

// ListStale retrieves entries stuck in a non-terminal state whose last
// update is older than the given cutoff, including PROCESSING rows whose
// claim was abandoned by a crashed worker.
func (r *PostgreSQLOutboxEntryRepository) ListStale(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, intent_type, payload, status, attempts, last_error, created_at, updated_at
			  FROM outbox_entries
			  WHERE status IN ($1, $2, $3) AND updated_at < $4
			  ORDER BY created_at ASC
			  LIMIT $5`

	rows, err := querier.QueryContext(ctx, query, domain.StatusPending, domain.StatusFailed,
		domain.StatusProcessing, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var entries []*domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry

		err := rows.Scan(&entry.ID, &entry.IntentType, &entry.Payload, &entry.Status,
			&entry.Attempts, &entry.LastError, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
