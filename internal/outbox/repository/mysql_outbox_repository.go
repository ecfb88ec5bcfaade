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

// MySQLOutboxEntryRepository handles outbox entry persistence for MySQL
type MySQLOutboxEntryRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEntryRepository creates a new MySQLOutboxEntryRepository
func NewMySQLOutboxEntryRepository(db *sql.DB) *MySQLOutboxEntryRepository {
	return &MySQLOutboxEntryRepository{
		db: db,
	}
}

// Create inserts a new outbox entry
func (r *MySQLOutboxEntryRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_entries (id, intent_type, payload, status, attempts, last_error, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := entry.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, idBytes, entry.IntentType, entry.Payload, entry.Status,
		entry.Attempts, entry.LastError)

	return err
}

// GetByID retrieves an outbox entry by its identifier
func (r *MySQLOutboxEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, intent_type, payload, status, attempts, last_error, created_at, updated_at
			  FROM outbox_entries
			  WHERE id = ?`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var entry domain.OutboxEntry
	var scannedID []byte
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(&scannedID, &entry.IntentType, &entry.Payload,
		&entry.Status, &entry.Attempts, &entry.LastError, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	// Convert bytes back to UUID
	if err := entry.ID.UnmarshalBinary(scannedID); err != nil {
		return nil, err
	}

	return &entry, nil
}

// MarkProcessing claims an entry for processing with a conditional update. It
// returns true when this call won the claim and false when the entry was
// already terminal or held by another worker. The claim is a lease: a
// PROCESSING row whose last update predates reclaimBefore is treated as
// abandoned and may be reclaimed.
func (r *MySQLOutboxEntryRepository) MarkProcessing(
	ctx context.Context,
	id uuid.UUID,
	reclaimBefore time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_entries
			  SET status = ?, attempts = attempts + 1, updated_at = NOW()
			  WHERE id = ? AND (status IN (?, ?) OR (status = ? AND updated_at < ?))`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, err
	}

	result, err := querier.ExecContext(ctx, query, domain.StatusProcessing, idBytes,
		domain.StatusPending, domain.StatusFailed, domain.StatusProcessing, reclaimBefore)
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
func (r *MySQLOutboxEntryRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_entries
			  SET status = ?, last_error = ?, updated_at = NOW()
			  WHERE id = ?`

	// Convert UUID to bytes for MySQL BINARY(16)
	idBytes, err := entry.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, entry.Status, entry.LastError, idBytes)

	return err
}

// ListStale retrieves entries stuck in a non-terminal state whose last
// update is older than the given cutoff, including PROCESSING rows whose
// claim was abandoned by a crashed worker.
func (r *MySQLOutboxEntryRepository) ListStale(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.OutboxEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, intent_type, payload, status, attempts, last_error, created_at, updated_at
			  FROM outbox_entries
			  WHERE status IN (?, ?, ?) AND updated_at < ?
			  ORDER BY created_at ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, domain.StatusPending, domain.StatusFailed,
		domain.StatusProcessing, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var entries []*domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry
		var idBytes []byte

		err := rows.Scan(&idBytes, &entry.IntentType, &entry.Payload, &entry.Status,
			&entry.Attempts, &entry.LastError, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, err
		}

		// Convert bytes back to UUID
		if err := entry.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
