package usecase

import (
	"context"
	"log/slog"
	"time"
)

// SweeperConfig holds sweeper loop configuration
type SweeperConfig struct {
	Interval   time.Duration
	BatchSize  int
	StaleAfter time.Duration
}

// Sweeper periodically re-dispatches entries stuck in a non-terminal state:
// PENDING entries whose post-commit enqueue was lost, FAILED entries whose
// retry redelivery disappeared with a crashed queue, and PROCESSING entries
// whose worker died holding the claim. Re-dispatching a live entry is
// harmless because the worker's claim is conditional.
//
// Each re-dispatch enqueues a fresh job with its own delivery budget, so the
// attempt limit bounds retries per job, not per entry. StaleAfter must exceed
// both the queue's retry backoff horizon and ProcessingLease, so a sweep never
// races a redelivery that is still scheduled or a claim that is still live.
type Sweeper struct {
	config     SweeperConfig
	outboxRepo OutboxEntryRepository
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewSweeper creates a new Sweeper
func NewSweeper(
	config SweeperConfig,
	outboxRepo OutboxEntryRepository,
	dispatcher *Dispatcher,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		config:     config,
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("starting outbox sweeper",
			slog.Duration("interval", s.config.Interval),
			slog.Int("batch_size", s.config.BatchSize),
			slog.Duration("stale_after", s.config.StaleAfter),
		)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("stopping outbox sweeper")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				if s.logger != nil {
					s.logger.Error("outbox sweep failed", slog.Any("error", err))
				}
			}
		}
	}
}

// Sweep re-dispatches one batch of stale entries.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.config.StaleAfter)

	entries, err := s.outboxRepo.ListStale(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("re-dispatching stale outbox entries", slog.Int("count", len(entries)))
	}

	for _, entry := range entries {
		s.dispatcher.Dispatch(ctx, entry.ID)
	}

	return nil
}
