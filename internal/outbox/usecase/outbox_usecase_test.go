package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
	"github.com/assignment-sets/audio-saas-backend/internal/outbox/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/queue"
)

// MockOutboxEntryRepository is a mock implementation of OutboxEntryRepository
type MockOutboxEntryRepository struct {
	mock.Mock
}

func (m *MockOutboxEntryRepository) Create(ctx context.Context, entry *domain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxEntryRepository) MarkProcessing(
	ctx context.Context,
	id uuid.UUID,
	reclaimBefore time.Time,
) (bool, error) {
	args := m.Called(ctx, id, reclaimBefore)
	return args.Bool(0), args.Error(1)
}

func (m *MockOutboxEntryRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxEntryRepository) ListStale(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]*domain.OutboxEntry, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEntry), args.Error(1)
}

// MockEnqueuer is a mock implementation of queue.Enqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, jobName string, payload any) (string, error) {
	args := m.Called(ctx, jobName, payload)
	return args.String(0), args.Error(1)
}

// MockIntentHandler is a mock implementation of IntentHandler
type MockIntentHandler struct {
	mock.Mock
}

func (m *MockIntentHandler) Apply(ctx context.Context, entry *domain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockIntentHandler) Compensate(ctx context.Context, entry *domain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockBusinessMetrics is a mock implementation of metrics.BusinessMetrics
type MockBusinessMetrics struct {
	mock.Mock
}

func (m *MockBusinessMetrics) RecordOperation(ctx context.Context, metricDomain, operation, status string) {
	m.Called(ctx, metricDomain, operation, status)
}

func (m *MockBusinessMetrics) RecordDuration(
	ctx context.Context,
	metricDomain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, metricDomain, operation, duration, status)
}

func pendingEntry() *domain.OutboxEntry {
	return &domain.OutboxEntry{
		ID:         uuid.Must(uuid.NewV7()),
		IntentType: domain.IntentCreateArtistProfile,
		Payload:    []byte(`{"artist_profile_id":"p1"}`),
		Status:     domain.StatusPending,
	}
}

func processJob(t *testing.T, outboxID uuid.UUID, attemptsMade, maxAttempts int) *queue.Job {
	t.Helper()

	data, err := json.Marshal(ProcessOutboxPayload{OutboxID: outboxID})
	assert.NoError(t, err)

	return &queue.Job{
		ID:           "job-1",
		Name:         JobProcessOutbox,
		Data:         data,
		AttemptsMade: attemptsMade,
		MaxAttempts:  maxAttempts,
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		enqueuer := &MockEnqueuer{}
		dispatcher := NewDispatcher(enqueuer, nil)
		entryID := uuid.Must(uuid.NewV7())

		enqueuer.On("Enqueue", mock.Anything, JobProcessOutbox, ProcessOutboxPayload{OutboxID: entryID}).
			Return("queue-job-1", nil)

		dispatcher.Dispatch(context.Background(), entryID)
		enqueuer.AssertExpectations(t)
	})

	t.Run("EnqueueFailureIsAbsorbed", func(t *testing.T) {
		enqueuer := &MockEnqueuer{}
		dispatcher := NewDispatcher(enqueuer, nil)
		entryID := uuid.Must(uuid.NewV7())

		enqueuer.On("Enqueue", mock.Anything, JobProcessOutbox, mock.Anything).
			Return("", errors.New("redis unavailable"))

		// Must not panic or propagate; the sweeper picks the entry up later.
		dispatcher.Dispatch(context.Background(), entryID)
		enqueuer.AssertExpectations(t)
	})
}

func TestWorker_HandleJob_Success(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	handler := &MockIntentHandler{}
	worker := NewWorker(repo, nil, nil)
	worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

	entry := pendingEntry()
	job := processJob(t, entry.ID, 0, 3)

	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
	repo.On("MarkProcessing", mock.Anything, entry.ID, mock.Anything).Return(true, nil)
	handler.On("Apply", mock.Anything, entry).Return(nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
		return e.Status == domain.StatusCompleted && e.LastError == nil
	})).Return(nil)

	err := worker.HandleJob(context.Background(), job)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestWorker_HandleJob_IgnoresForeignJobNames(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	worker := NewWorker(repo, nil, nil)

	err := worker.HandleJob(context.Background(), &queue.Job{Name: "unrelated:job"})
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestWorker_HandleJob_DropsMalformedPayload(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	worker := NewWorker(repo, nil, nil)

	err := worker.HandleJob(context.Background(), &queue.Job{
		Name: JobProcessOutbox,
		Data: []byte(`{invalid`),
	})
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestWorker_HandleJob_EntryNotFound(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	worker := NewWorker(repo, nil, nil)

	entryID := uuid.Must(uuid.NewV7())
	repo.On("GetByID", mock.Anything, entryID).Return(nil, domain.ErrEntryNotFound)

	err := worker.HandleJob(context.Background(), processJob(t, entryID, 0, 3))
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestWorker_HandleJob_LoadFailureIsRetried(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	worker := NewWorker(repo, nil, nil)

	entryID := uuid.Must(uuid.NewV7())
	repo.On("GetByID", mock.Anything, entryID).Return(nil, errors.New("connection reset"))

	err := worker.HandleJob(context.Background(), processJob(t, entryID, 0, 3))
	assert.ErrorIs(t, err, apperrors.ErrTransient)
}

func TestWorker_HandleJob_TerminalEntriesAreSkipped(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusCompleted, domain.StatusFailedAndRolledBack} {
		t.Run(string(status), func(t *testing.T) {
			repo := &MockOutboxEntryRepository{}
			handler := &MockIntentHandler{}
			worker := NewWorker(repo, nil, nil)
			worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

			entry := pendingEntry()
			entry.Status = status

			repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)

			err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 1, 3))
			assert.NoError(t, err)
			repo.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything, mock.Anything)
			handler.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
		})
	}
}

func TestWorker_HandleJob_UnknownIntentLeavesEntryUntouched(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	worker := NewWorker(repo, nil, nil)

	entry := pendingEntry()
	entry.IntentType = "SOME_FUTURE_INTENT"

	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)

	err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 0, 3))
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestWorker_HandleJob_ClaimLostIsNoOp(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	handler := &MockIntentHandler{}
	worker := NewWorker(repo, nil, nil)
	worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

	entry := pendingEntry()
	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
	repo.On("MarkProcessing", mock.Anything, entry.ID, mock.Anything).Return(false, nil)

	err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 0, 3))
	assert.NoError(t, err)
	handler.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestWorker_HandleJob_RetryableFailure(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	handler := &MockIntentHandler{}
	worker := NewWorker(repo, nil, nil)
	worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

	entry := pendingEntry()
	applyErr := errors.New("authorization store unavailable")

	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
	repo.On("MarkProcessing", mock.Anything, entry.ID, mock.Anything).Return(true, nil)
	handler.On("Apply", mock.Anything, entry).Return(applyErr)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
		return e.Status == domain.StatusFailed && e.LastError != nil && *e.LastError == applyErr.Error()
	})).Return(nil)

	// Not the final attempt: no compensation, error re-raised for backoff.
	err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 0, 3))
	assert.ErrorIs(t, err, applyErr)
	handler.AssertNotCalled(t, "Compensate", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestWorker_HandleJob_FinalAttemptCompensates(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	handler := &MockIntentHandler{}
	worker := NewWorker(repo, nil, nil)
	worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

	entry := pendingEntry()
	entry.Status = domain.StatusFailed
	applyErr := errors.New("authorization store unavailable")

	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
	repo.On("MarkProcessing", mock.Anything, entry.ID, mock.Anything).Return(true, nil)
	handler.On("Apply", mock.Anything, entry).Return(applyErr)
	handler.On("Compensate", mock.Anything, entry).Return(nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
		return e.Status == domain.StatusFailedAndRolledBack && e.LastError != nil
	})).Return(nil)

	// attemptsMade 2 of maxAttempts 3 makes this the final delivery.
	err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 2, 3))
	assert.ErrorIs(t, err, applyErr)
	repo.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestWorker_HandleJob_CompensationFailureLeavesEntryForOperators(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	handler := &MockIntentHandler{}
	worker := NewWorker(repo, nil, nil)
	worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

	entry := pendingEntry()
	applyErr := errors.New("authorization store unavailable")

	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
	repo.On("MarkProcessing", mock.Anything, entry.ID, mock.Anything).Return(true, nil)
	handler.On("Apply", mock.Anything, entry).Return(applyErr)
	handler.On("Compensate", mock.Anything, entry).Return(errors.New("database down"))

	err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 2, 3))
	assert.ErrorIs(t, err, applyErr)
	// Rollback must not be recorded when compensation did not happen.
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
		return e.Status == domain.StatusFailedAndRolledBack
	}))
}

func TestWorker_HandleJob_CompletionUpdateFailureIsSettledOnRedelivery(t *testing.T) {
	repo := &MockOutboxEntryRepository{}
	handler := &MockIntentHandler{}
	worker := NewWorker(repo, nil, nil)
	worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

	entry := pendingEntry()

	// First delivery: the effect lands but the COMPLETED update does not, so
	// the row stays PROCESSING and the error triggers a redelivery.
	repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil).Once()
	repo.On("MarkProcessing", mock.Anything, entry.ID, mock.Anything).Return(true, nil).Once()
	handler.On("Apply", mock.Anything, entry).Return(nil).Once()
	repo.On("Update", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 0, 3))
	assert.ErrorIs(t, err, apperrors.ErrTransient)

	// Redelivery: the row is still PROCESSING past its lease. The claim must
	// be reclaimed so Apply replays and the row settles instead of being
	// acknowledged with the ledger stuck forever.
	stale := pendingEntry()
	stale.ID = entry.ID
	stale.Status = domain.StatusProcessing
	stale.Attempts = 1

	repo.On("GetByID", mock.Anything, entry.ID).Return(stale, nil).Once()
	repo.On("MarkProcessing", mock.Anything, entry.ID, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) >= ProcessingLease-time.Second
	})).Return(true, nil).Once()
	handler.On("Apply", mock.Anything, stale).Return(nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(e *domain.OutboxEntry) bool {
		return e.Status == domain.StatusCompleted && e.LastError == nil
	})).Return(nil).Once()

	err = worker.HandleJob(context.Background(), processJob(t, entry.ID, 1, 3))
	assert.NoError(t, err)
	repo.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestWorker_HandleJob_RecordsOutcomes(t *testing.T) {
	applyErr := errors.New("authorization store unavailable")

	setup := func(businessMetrics *MockBusinessMetrics) (*Worker, *MockOutboxEntryRepository, *MockIntentHandler, *domain.OutboxEntry) {
		repo := &MockOutboxEntryRepository{}
		handler := &MockIntentHandler{}
		worker := NewWorker(repo, businessMetrics, nil)
		worker.RegisterHandler(domain.IntentCreateArtistProfile, handler)

		entry := pendingEntry()
		repo.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
		repo.On("MarkProcessing", mock.Anything, entry.ID, mock.Anything).Return(true, nil)
		return worker, repo, handler, entry
	}

	t.Run("Completed", func(t *testing.T) {
		businessMetrics := &MockBusinessMetrics{}
		worker, repo, handler, entry := setup(businessMetrics)

		handler.On("Apply", mock.Anything, entry).Return(nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)
		businessMetrics.On("RecordOperation", mock.Anything, "outbox", "entry_completed", "success")

		err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 0, 3))
		assert.NoError(t, err)
		businessMetrics.AssertExpectations(t)
	})

	t.Run("Retried", func(t *testing.T) {
		businessMetrics := &MockBusinessMetrics{}
		worker, repo, handler, entry := setup(businessMetrics)

		handler.On("Apply", mock.Anything, entry).Return(applyErr)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)
		businessMetrics.On("RecordOperation", mock.Anything, "outbox", "entry_retried", "error")

		err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 0, 3))
		assert.ErrorIs(t, err, applyErr)
		businessMetrics.AssertExpectations(t)
	})

	t.Run("Compensated", func(t *testing.T) {
		businessMetrics := &MockBusinessMetrics{}
		worker, repo, handler, entry := setup(businessMetrics)

		handler.On("Apply", mock.Anything, entry).Return(applyErr)
		handler.On("Compensate", mock.Anything, entry).Return(nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)
		businessMetrics.On("RecordOperation", mock.Anything, "outbox", "entry_compensated", "success")

		err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 2, 3))
		assert.ErrorIs(t, err, applyErr)
		businessMetrics.AssertExpectations(t)
	})

	t.Run("CompensationFailed", func(t *testing.T) {
		businessMetrics := &MockBusinessMetrics{}
		worker, _, handler, entry := setup(businessMetrics)

		handler.On("Apply", mock.Anything, entry).Return(applyErr)
		handler.On("Compensate", mock.Anything, entry).Return(errors.New("database down"))
		businessMetrics.On("RecordOperation", mock.Anything, "outbox", "entry_compensated", "error")

		err := worker.HandleJob(context.Background(), processJob(t, entry.ID, 2, 3))
		assert.ErrorIs(t, err, applyErr)
		businessMetrics.AssertExpectations(t)
	})
}

func TestSweeper_Sweep(t *testing.T) {
	t.Run("RedispatchesStaleEntries", func(t *testing.T) {
		repo := &MockOutboxEntryRepository{}
		enqueuer := &MockEnqueuer{}
		dispatcher := NewDispatcher(enqueuer, nil)
		sweeper := NewSweeper(SweeperConfig{
			Interval:   time.Minute,
			BatchSize:  50,
			StaleAfter: 5 * time.Minute,
		}, repo, dispatcher, nil)

		entry1 := pendingEntry()
		entry2 := pendingEntry()
		entry2.Status = domain.StatusFailed

		repo.On("ListStale", mock.Anything, mock.Anything, 50).
			Return([]*domain.OutboxEntry{entry1, entry2}, nil)
		enqueuer.On("Enqueue", mock.Anything, JobProcessOutbox, ProcessOutboxPayload{OutboxID: entry1.ID}).
			Return("j1", nil)
		enqueuer.On("Enqueue", mock.Anything, JobProcessOutbox, ProcessOutboxPayload{OutboxID: entry2.ID}).
			Return("j2", nil)

		err := sweeper.Sweep(context.Background())
		assert.NoError(t, err)
		enqueuer.AssertExpectations(t)
	})

	t.Run("NothingStale", func(t *testing.T) {
		repo := &MockOutboxEntryRepository{}
		enqueuer := &MockEnqueuer{}
		sweeper := NewSweeper(SweeperConfig{BatchSize: 50}, repo, NewDispatcher(enqueuer, nil), nil)

		repo.On("ListStale", mock.Anything, mock.Anything, 50).
			Return([]*domain.OutboxEntry{}, nil)

		err := sweeper.Sweep(context.Background())
		assert.NoError(t, err)
		enqueuer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ListError", func(t *testing.T) {
		repo := &MockOutboxEntryRepository{}
		sweeper := NewSweeper(SweeperConfig{BatchSize: 50}, repo, NewDispatcher(&MockEnqueuer{}, nil), nil)

		repo.On("ListStale", mock.Anything, mock.Anything, 50).
			Return(nil, errors.New("connection reset"))

		err := sweeper.Sweep(context.Background())
		assert.Error(t, err)
	})
}

func TestSweeper_Start_ContextCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &MockOutboxEntryRepository{}
	sweeper := NewSweeper(SweeperConfig{
		Interval:   100 * time.Millisecond,
		BatchSize:  10,
		StaleAfter: time.Minute,
	}, repo, NewDispatcher(&MockEnqueuer{}, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sweeper.Start(ctx)
	assert.Equal(t, context.Canceled, err)
}
