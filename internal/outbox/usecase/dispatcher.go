// Package usecase implements the outbox business logic: dispatching recorded
// intents onto the work queue, the worker state machine that applies them, and
// the sweeper that re-dispatches entries whose queue job was lost.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/outbox/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/queue"
)

// JobProcessOutbox is the queue job name carrying outbox entry references.
const JobProcessOutbox = "outbox:process"

// ProcessOutboxPayload is the queue payload for JobProcessOutbox jobs. It
// carries only the ledger reference; the entry itself is the source of truth.
type ProcessOutboxPayload struct {
	OutboxID uuid.UUID `json:"outbox_id"`
}

// OutboxEntryRepository defines outbox entry repository operations
type OutboxEntryRepository interface {
	Create(ctx context.Context, entry *domain.OutboxEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, reclaimBefore time.Time) (bool, error)
	Update(ctx context.Context, entry *domain.OutboxEntry) error
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*domain.OutboxEntry, error)
}

// Dispatcher enqueues process jobs for committed outbox entries. Dispatch is
// best effort: the ledger row is already durable, so an enqueue failure is
// logged and absorbed and the sweeper re-dispatches the entry later.
type Dispatcher struct {
	enqueuer queue.Enqueuer
	logger   *slog.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(enqueuer queue.Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Dispatch pushes a process job referencing the given entry onto the queue.
// It never returns an error: callers run after their transaction committed and
// must not fail the caller's request over a queue hiccup.
func (d *Dispatcher) Dispatch(ctx context.Context, entryID uuid.UUID) {
	jobID, err := d.enqueuer.Enqueue(ctx, JobProcessOutbox, ProcessOutboxPayload{OutboxID: entryID})
	if err != nil {
		if d.logger != nil {
			d.logger.Error("failed to dispatch outbox entry, sweeper will retry",
				slog.String("outbox_id", entryID.String()),
				slog.Any("error", err),
			)
		}
		return
	}

	if d.logger != nil {
		d.logger.Debug("dispatched outbox entry",
			slog.String("outbox_id", entryID.String()),
			slog.String("job_id", jobID),
		)
	}
}
