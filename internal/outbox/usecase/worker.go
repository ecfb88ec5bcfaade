package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
	"github.com/assignment-sets/audio-saas-backend/internal/metrics"
	"github.com/assignment-sets/audio-saas-backend/internal/outbox/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/queue"
)

// ProcessingLease is how long a MarkProcessing claim is honored. A PROCESSING
// entry older than this is considered abandoned (worker crash, or a completion
// update that never landed) and a later delivery may reclaim and replay it.
const ProcessingLease = 5 * time.Minute

// IntentHandler applies one intent type's cross-system effect and knows how to
// undo the primary write when the effect can no longer succeed. Apply must be
// idempotent: the queue delivers at least once and a worker crash after Apply
// but before the status update causes a replay.
type IntentHandler interface {
	Apply(ctx context.Context, entry *domain.OutboxEntry) error
	Compensate(ctx context.Context, entry *domain.OutboxEntry) error
}

// Worker drives a single outbox entry through its lifecycle on each queue
// delivery. The ledger row is the source of truth; the queue job is only a
// pointer to it.
type Worker struct {
	outboxRepo      OutboxEntryRepository
	handlers        map[domain.IntentType]IntentHandler
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// NewWorker creates a new Worker
func NewWorker(outboxRepo OutboxEntryRepository, businessMetrics metrics.BusinessMetrics, logger *slog.Logger) *Worker {
	return &Worker{
		outboxRepo:      outboxRepo,
		handlers:        make(map[domain.IntentType]IntentHandler),
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// RegisterHandler binds an intent type to its handler. Not safe for concurrent
// use with HandleJob; registration happens during startup wiring.
func (w *Worker) RegisterHandler(intentType domain.IntentType, handler IntentHandler) {
	w.handlers[intentType] = handler
}

// HandleJob processes one queue delivery referencing an outbox entry.
// Returning an error signals the queue to redeliver with backoff; returning
// nil acknowledges the delivery for good.
func (w *Worker) HandleJob(ctx context.Context, job *queue.Job) error {
	if job.Name != JobProcessOutbox {
		return nil
	}

	var payload ProcessOutboxPayload
	if err := json.Unmarshal(job.Data, &payload); err != nil {
		// Malformed payloads never become valid on redelivery.
		if w.logger != nil {
			w.logger.Error("dropping malformed outbox job",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
		return nil
	}

	entry, err := w.outboxRepo.GetByID(ctx, payload.OutboxID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if w.logger != nil {
				w.logger.Warn("outbox entry not found, dropping job",
					slog.String("outbox_id", payload.OutboxID.String()),
				)
			}
			return nil
		}
		return apperrors.Wrap(apperrors.ErrTransient, "failed to load outbox entry: "+err.Error())
	}

	if entry.Status.IsTerminal() {
		if w.logger != nil {
			w.logger.Debug("outbox entry already settled, skipping",
				slog.String("outbox_id", entry.ID.String()),
				slog.String("status", string(entry.Status)),
			)
		}
		return nil
	}

	// Resolve the handler before any mutation so that an unknown intent type
	// leaves the entry untouched for a process that does know it.
	handler, ok := w.handlers[entry.IntentType]
	if !ok {
		if w.logger != nil {
			w.logger.Warn("no handler registered for intent type, leaving entry untouched",
				slog.String("outbox_id", entry.ID.String()),
				slog.String("intent_type", string(entry.IntentType)),
			)
		}
		return nil
	}

	claimed, err := w.outboxRepo.MarkProcessing(ctx, entry.ID, time.Now().Add(-ProcessingLease))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransient, "failed to claim outbox entry: "+err.Error())
	}
	if !claimed {
		if w.logger != nil {
			w.logger.Debug("outbox entry claimed elsewhere, skipping",
				slog.String("outbox_id", entry.ID.String()),
			)
		}
		return nil
	}
	entry.Status = domain.StatusProcessing
	entry.Attempts++

	if err := handler.Apply(ctx, entry); err != nil {
		return w.handleFailure(ctx, job, entry, handler, err)
	}

	entry.Status = domain.StatusCompleted
	entry.LastError = nil
	if err := w.outboxRepo.Update(ctx, entry); err != nil {
		// The effect is applied but the ledger still says PROCESSING. The
		// redelivery replays Apply, which is idempotent, and settles the row.
		return apperrors.Wrap(apperrors.ErrTransient, "failed to mark outbox entry completed: "+err.Error())
	}

	w.recordOutcome(ctx, "entry_completed", "success")
	if w.logger != nil {
		w.logger.Info("outbox entry completed",
			slog.String("outbox_id", entry.ID.String()),
			slog.String("intent_type", string(entry.IntentType)),
			slog.Int("attempts", entry.Attempts),
		)
	}

	return nil
}

// recordOutcome counts a terminal or retried outcome under the outbox domain.
func (w *Worker) recordOutcome(ctx context.Context, operation, status string) {
	if w.businessMetrics != nil {
		w.businessMetrics.RecordOperation(ctx, "outbox", operation, status)
	}
}

// handleFailure records the failure on the ledger and, when the queue's
// attempt budget is exhausted, runs compensation. It always returns a non-nil
// error so the queue records the failed delivery.
func (w *Worker) handleFailure(
	ctx context.Context,
	job *queue.Job,
	entry *domain.OutboxEntry,
	handler IntentHandler,
	cause error,
) error {
	if w.logger != nil {
		w.logger.Error("outbox intent handler failed",
			slog.String("outbox_id", entry.ID.String()),
			slog.String("intent_type", string(entry.IntentType)),
			slog.Int("attempts_made", job.AttemptsMade),
			slog.Bool("final_attempt", job.IsFinalAttempt()),
			slog.Any("error", cause),
		)
	}

	if !job.IsFinalAttempt() {
		w.recordOutcome(ctx, "entry_retried", "error")
		errorMsg := cause.Error()
		entry.Status = domain.StatusFailed
		entry.LastError = &errorMsg
		if err := w.outboxRepo.Update(ctx, entry); err != nil && w.logger != nil {
			w.logger.Error("failed to record outbox entry failure",
				slog.String("outbox_id", entry.ID.String()),
				slog.Any("error", err),
			)
		}
		return cause
	}

	w.compensate(ctx, entry, handler, cause)
	return cause
}

// compensate undoes the primary write after the retry budget ran out. A
// compensation failure is logged and absorbed: the entry stays PROCESSING for
// manual intervention, and re-raising would only burn a budget that is
// already spent.
func (w *Worker) compensate(ctx context.Context, entry *domain.OutboxEntry, handler IntentHandler, cause error) {
	if err := handler.Compensate(ctx, entry); err != nil {
		w.recordOutcome(ctx, "entry_compensated", "error")
		if w.logger != nil {
			w.logger.Error("compensation failed, entry requires manual intervention",
				slog.String("outbox_id", entry.ID.String()),
				slog.String("intent_type", string(entry.IntentType)),
				slog.Any("error", err),
			)
		}
		return
	}

	errorMsg := fmt.Sprintf("retries exhausted: %s", cause.Error())
	entry.Status = domain.StatusFailedAndRolledBack
	entry.LastError = &errorMsg
	if err := w.outboxRepo.Update(ctx, entry); err != nil {
		if w.logger != nil {
			w.logger.Error("failed to record rollback on outbox entry",
				slog.String("outbox_id", entry.ID.String()),
				slog.Any("error", err),
			)
		}
		return
	}

	w.recordOutcome(ctx, "entry_compensated", "success")
	if w.logger != nil {
		w.logger.Warn("outbox entry rolled back",
			slog.String("outbox_id", entry.ID.String()),
			slog.String("intent_type", string(entry.IntentType)),
		)
	}
}
