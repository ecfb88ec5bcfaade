package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	accountUsecase "github.com/assignment-sets/audio-saas-backend/internal/account/usecase"
	"github.com/assignment-sets/audio-saas-backend/internal/app"
	"github.com/assignment-sets/audio-saas-backend/internal/config"
	outboxUsecase "github.com/assignment-sets/audio-saas-backend/internal/outbox/usecase"
)

// RunWorker starts the background job consumer pool and the outbox sweeper.
// Registers all job handlers on the queue mux, then blocks until receiving
// SIGINT/SIGTERM or until one of the loops fails.
func RunWorker(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	worker, err := container.Worker()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox worker: %w", err)
	}

	cleanupPipeline, err := container.CleanupPipeline()
	if err != nil {
		return fmt.Errorf("failed to initialize cleanup pipeline: %w", err)
	}

	redisQueue, err := container.RedisQueue()
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}

	sweeper, err := container.Sweeper()
	if err != nil {
		return fmt.Errorf("failed to initialize sweeper: %w", err)
	}

	// Register job handlers
	mux := container.Mux()
	mux.Handle(outboxUsecase.JobProcessOutbox, worker.HandleJob)
	mux.Handle(accountUsecase.JobAccountCleanup, cleanupPipeline.HandleJob)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return redisQueue.Start(groupCtx)
	})
	group.Go(func() error {
		return sweeper.Start(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker error: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}
