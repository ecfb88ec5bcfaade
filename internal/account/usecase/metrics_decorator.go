package usecase

import (
	"context"
	"time"

	"github.com/assignment-sets/audio-saas-backend/internal/account/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/metrics"
)

// accountUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type accountUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps an account UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &accountUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// SyncAccount records metrics for identity provider sync operations.
func (a *accountUseCaseWithMetrics) SyncAccount(
	ctx context.Context,
	input SyncAccountInput,
) (*domain.Account, error) {
	start := time.Now()
	account, err := a.next.SyncAccount(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "account", "account_sync", status)
	a.metrics.RecordDuration(ctx, "account", "account_sync", time.Since(start), status)

	return account, err
}

// GetAccountByID records metrics for account retrieval operations.
func (a *accountUseCaseWithMetrics) GetAccountByID(
	ctx context.Context,
	id string,
) (*domain.Account, error) {
	start := time.Now()
	account, err := a.next.GetAccountByID(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "account", "account_get", status)
	a.metrics.RecordDuration(ctx, "account", "account_get", time.Since(start), status)

	return account, err
}

// UpdateAccount records metrics for account update operations.
func (a *accountUseCaseWithMetrics) UpdateAccount(
	ctx context.Context,
	id string,
	input UpdateAccountInput,
) (*domain.Account, error) {
	start := time.Now()
	account, err := a.next.UpdateAccount(ctx, id, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "account", "account_update", status)
	a.metrics.RecordDuration(ctx, "account", "account_update", time.Since(start), status)

	return account, err
}

// DeleteAccount records metrics for account deletion operations.
func (a *accountUseCaseWithMetrics) DeleteAccount(ctx context.Context, id string) error {
	start := time.Now()
	err := a.next.DeleteAccount(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "account", "account_delete", status)
	a.metrics.RecordDuration(ctx, "account", "account_delete", time.Since(start), status)

	return err
}
