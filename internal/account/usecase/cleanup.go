package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/assignment-sets/audio-saas-backend/internal/authz"
	"github.com/assignment-sets/audio-saas-backend/internal/identity"
	"github.com/assignment-sets/audio-saas-backend/internal/metrics"
	"github.com/assignment-sets/audio-saas-backend/internal/queue"
)

// JobAccountCleanup is the queue job name for the account cleanup pipeline.
const JobAccountCleanup = "account:cleanup"

// CleanupPayload is the queue payload for JobAccountCleanup jobs.
type CleanupPayload struct {
	AccountID string `json:"account_id"`
}

// deleteTupleBatchSize bounds a single tuple delete call.
const deleteTupleBatchSize = 100

// CleanupPipeline destroys what remains of a soft-deleted account: its
// authorization tuples, its identity-provider user and its database row.
// Every step is idempotent, so a redelivery after a partial run only repeats
// work that no-ops the second time.
type CleanupPipeline struct {
	accountRepo     AccountRepository
	authzClient     authz.Client
	identityClient  identity.Client
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// NewCleanupPipeline creates a new CleanupPipeline
func NewCleanupPipeline(
	accountRepo AccountRepository,
	authzClient authz.Client,
	identityClient identity.Client,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *CleanupPipeline {
	return &CleanupPipeline{
		accountRepo:     accountRepo,
		authzClient:     authzClient,
		identityClient:  identityClient,
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// HandleJob runs the cleanup steps in order. The authorization purge is best
// effort; the identity-provider delete and the row delete gate success and
// trigger a redelivery when they fail.
func (p *CleanupPipeline) HandleJob(ctx context.Context, job *queue.Job) error {
	if job.Name != JobAccountCleanup {
		return nil
	}

	var payload CleanupPayload
	if err := json.Unmarshal(job.Data, &payload); err != nil {
		if p.logger != nil {
			p.logger.Error("dropping malformed cleanup job",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
		return nil
	}

	p.purgeAuthorization(ctx, payload.AccountID)

	if err := p.identityClient.DeleteAccount(ctx, payload.AccountID); err != nil {
		p.recordRun(ctx, "error")
		return err
	}

	rows, err := p.accountRepo.HardDelete(ctx, payload.AccountID)
	if err != nil {
		p.recordRun(ctx, "error")
		return err
	}

	p.recordRun(ctx, "success")
	if p.logger != nil {
		p.logger.Info("account cleanup finished",
			slog.String("account_id", payload.AccountID),
			slog.Int64("rows_deleted", rows),
		)
	}

	return nil
}

// recordRun counts a finished or failed cleanup run under the account domain.
func (p *CleanupPipeline) recordRun(ctx context.Context, status string) {
	if p.businessMetrics != nil {
		p.businessMetrics.RecordOperation(ctx, "account", "cleanup_run", status)
	}
}

// purgeAuthorization removes every tuple naming the account as subject.
// Failures are logged and absorbed: orphaned tuples reference an object that
// no longer resolves, and blocking the rest of the pipeline on them would
// keep personal data around longer.
func (p *CleanupPipeline) purgeAuthorization(ctx context.Context, accountID string) {
	tuples, err := p.authzClient.ReadTuples(ctx, authz.ReadFilter{User: authz.AccountRef(accountID)})
	if err != nil {
		if p.logger != nil {
			p.logger.Error("failed to read authorization tuples during cleanup",
				slog.String("account_id", accountID),
				slog.Any("error", err),
			)
		}
		return
	}

	if len(tuples) == 0 {
		return
	}

	for start := 0; start < len(tuples); start += deleteTupleBatchSize {
		end := min(start+deleteTupleBatchSize, len(tuples))
		if err := p.authzClient.DeleteTuples(ctx, tuples[start:end]); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to delete authorization tuples during cleanup",
					slog.String("account_id", accountID),
					slog.Int("batch_start", start),
					slog.Any("error", err),
				)
			}
			return
		}
	}

	if p.logger != nil {
		p.logger.Info("purged authorization tuples",
			slog.String("account_id", accountID),
			slog.Int("count", len(tuples)),
		)
	}
}
