package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

const (
	// envelopeField is the stream entry field holding the JSON envelope.
	envelopeField = "envelope"

	defaultBlockTimeout      = 1000 // milliseconds
	defaultRetryPollInterval = time.Second
	retryPromoteBatch        = 100
)

// Config holds Redis queue configuration.
type Config struct {
	// Stream is the Redis stream key carrying job deliveries.
	Stream string
	// Group is the consumer group shared by the worker pool.
	Group string
	// ConsumerName identifies this process within the group.
	ConsumerName string
	// Concurrency is the number of concurrent consumers in the pool.
	Concurrency int
	// MaxAttempts is the delivery budget applied to enqueued jobs.
	MaxAttempts int
	// BackoffBase is the base delay for exponential backoff between redeliveries.
	BackoffBase time.Duration
}

// RedisQueue implements Enqueuer and runs the consumer pool over a Redis stream.
// Redelivery with backoff is implemented with a sorted set of scheduled
// envelopes that a promoter loop moves back onto the stream when due.
type RedisQueue struct {
	client rueidis.Client
	cfg    Config
	mux    *Mux
	logger *slog.Logger
}

// NewRedisQueue creates a queue over the given Redis client.
func NewRedisQueue(client rueidis.Client, cfg Config, mux *Mux, logger *slog.Logger) *RedisQueue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &RedisQueue{
		client: client,
		cfg:    cfg,
		mux:    mux,
		logger: logger,
	}
}

// Enqueue pushes a job onto the stream and returns its id.
func (q *RedisQueue) Enqueue(ctx context.Context, jobName string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal job payload")
	}

	env := envelope{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         jobName,
		Data:         data,
		AttemptsMade: 0,
		MaxAttempts:  q.cfg.MaxAttempts,
		EnqueuedAt:   time.Now().UTC(),
	}

	if err := q.appendEnvelope(ctx, &env); err != nil {
		return "", err
	}

	return env.ID, nil
}

// Start runs the consumer pool and the retry promoter until the context is
// cancelled. It blocks and always returns the context's error on shutdown.
func (q *RedisQueue) Start(ctx context.Context) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	q.logger.Info("starting queue consumers",
		slog.String("stream", q.cfg.Stream),
		slog.String("group", q.cfg.Group),
		slog.Int("concurrency", q.cfg.Concurrency),
	)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < q.cfg.Concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", q.cfg.ConsumerName, i)
		g.Go(func() error {
			q.consumeLoop(ctx, consumer)
			return nil
		})
	}

	g.Go(func() error {
		q.retryLoop(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ensureGroup creates the consumer group, tolerating the group already existing.
func (q *RedisQueue) ensureGroup(ctx context.Context) error {
	cmd := q.client.B().XgroupCreate().Key(q.cfg.Stream).Group(q.cfg.Group).Id("0").Mkstream().Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		if isBusyGroup(err) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrTransient, "failed to create consumer group: "+err.Error())
	}
	return nil
}

func (q *RedisQueue) consumeLoop(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cmd := q.client.B().Xreadgroup().Group(q.cfg.Group, consumer).
			Count(1).
			Block(defaultBlockTimeout).
			Streams().
			Key(q.cfg.Stream).
			Id(">").
			Build()

		result := q.client.Do(ctx, cmd)
		if err := result.Error(); err != nil {
			if rueidis.IsRedisNil(err) {
				continue // block timeout, nothing pending
			}
			if ctx.Err() != nil {
				return
			}
			q.logger.Error("failed to read from stream", slog.Any("error", err))
			sleepContext(ctx, time.Second)
			continue
		}

		streams, err := result.AsXRead()
		if err != nil {
			q.logger.Error("failed to parse stream entries", slog.Any("error", err))
			continue
		}

		for _, entries := range streams {
			for _, entry := range entries {
				q.processEntry(ctx, entry)
			}
		}
	}
}

// processEntry handles a single delivery and always acknowledges the stream
// entry: retryable failures are re-scheduled as a fresh envelope, exhausted
// failures are dropped after their handler had its final attempt.
func (q *RedisQueue) processEntry(ctx context.Context, entry rueidis.XRangeEntry) {
	defer q.ack(ctx, entry.ID)

	raw, ok := entry.FieldValues[envelopeField]
	if !ok {
		q.logger.Warn("stream entry without envelope, dropping", slog.String("entry_id", entry.ID))
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		q.logger.Error("failed to decode job envelope, dropping",
			slog.String("entry_id", entry.ID),
			slog.Any("error", err),
		)
		return
	}

	job := env.job()

	err := q.mux.Dispatch(ctx, job)
	if err == nil {
		return
	}

	if job.IsFinalAttempt() {
		q.logger.Error("job failed on final attempt, dropping",
			slog.String("job_id", job.ID),
			slog.String("job_name", job.Name),
			slog.Int("attempts_made", job.AttemptsMade+1),
			slog.Any("error", err),
		)
		return
	}

	q.scheduleRetry(ctx, &env, err)
}

// scheduleRetry stores the envelope with an incremented attempt counter in the
// retry set, scored by the time it becomes due.
func (q *RedisQueue) scheduleRetry(ctx context.Context, env *envelope, cause error) {
	delay := backoffDelay(q.cfg.BackoffBase, env.AttemptsMade)
	env.AttemptsMade++

	data, err := json.Marshal(env)
	if err != nil {
		q.logger.Error("failed to marshal retry envelope", slog.Any("error", err))
		return
	}

	due := float64(time.Now().Add(delay).UnixMilli())
	cmd := q.client.B().Zadd().Key(q.retryKey()).ScoreMember().ScoreMember(due, string(data)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		q.logger.Error("failed to schedule job retry",
			slog.String("job_id", env.ID),
			slog.Any("error", err),
		)
		return
	}

	q.logger.Warn("job failed, retry scheduled",
		slog.String("job_id", env.ID),
		slog.String("job_name", env.Name),
		slog.Int("attempts_made", env.AttemptsMade),
		slog.Duration("delay", delay),
		slog.Any("error", cause),
	)
}

// retryLoop promotes due envelopes from the retry set back onto the stream.
func (q *RedisQueue) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(defaultRetryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error("failed to promote scheduled retries", slog.Any("error", err))
			}
		}
	}
}

func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	cmd := q.client.B().Zrangebyscore().Key(q.retryKey()).Min("-inf").Max(now).
		Limit(0, retryPromoteBatch).Build()

	members, err := q.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return err
	}

	for _, member := range members {
		addCmd := q.client.B().Xadd().Key(q.cfg.Stream).Id("*").
			FieldValue().FieldValue(envelopeField, member).Build()
		if err := q.client.Do(ctx, addCmd).Error(); err != nil {
			return err
		}

		remCmd := q.client.B().Zrem().Key(q.retryKey()).Member(member).Build()
		if err := q.client.Do(ctx, remCmd).Error(); err != nil {
			return err
		}
	}

	return nil
}

func (q *RedisQueue) appendEnvelope(ctx context.Context, env *envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job envelope")
	}

	cmd := q.client.B().Xadd().Key(q.cfg.Stream).Id("*").
		FieldValue().FieldValue(envelopeField, string(data)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return apperrors.Wrap(apperrors.ErrTransient, err.Error())
	}

	return nil
}

func (q *RedisQueue) ack(ctx context.Context, entryID string) {
	cmd := q.client.B().Xack().Key(q.cfg.Stream).Group(q.cfg.Group).Id(entryID).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		q.logger.Error("failed to ack stream entry",
			slog.String("entry_id", entryID),
			slog.Any("error", err),
		)
	}
}

func (q *RedisQueue) retryKey() string {
	return q.cfg.Stream + ":retry"
}

// isBusyGroup reports whether the error is Redis telling us the consumer group
// already exists.
func isBusyGroup(err error) bool {
	if err == nil {
		return false
	}
	return len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}

// sleepContext pauses for the given duration or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
