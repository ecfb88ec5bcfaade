// Package queue defines the work-queue contract used by the application and its
// Redis Streams implementation. Delivery is at-least-once: a handler that returns
// an error is redelivered with exponential backoff until the job's attempt budget
// is exhausted, so handlers must tolerate duplicate deliveries.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Job is a single delivery of a queued message. AttemptsMade counts the
// deliveries that happened before this one, so the first delivery carries zero.
type Job struct {
	ID           string
	Name         string
	Data         json.RawMessage
	AttemptsMade int
	MaxAttempts  int
}

// IsFinalAttempt reports whether the current delivery is the last one the queue
// will make for this job.
func (j *Job) IsFinalAttempt() bool {
	return j.AttemptsMade >= j.MaxAttempts-1
}

// Handler processes a single job delivery. Returning nil acknowledges the job;
// returning an error schedules a backoff redelivery (or drops the job when the
// attempt budget is exhausted).
type Handler func(ctx context.Context, job *Job) error

// Enqueuer pushes jobs onto the shared work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobName string, payload any) (string, error)
}

// Mux routes job deliveries to the handler registered for the job name.
// Deliveries for unregistered names are acknowledged and skipped so that a
// shared queue can carry job families this process does not own.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewMux creates an empty job router.
func NewMux(logger *slog.Logger) *Mux {
	return &Mux{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Handle registers a handler for the given job name.
func (m *Mux) Handle(jobName string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[jobName] = handler
}

// Dispatch invokes the handler registered for the job's name. Unknown job names
// are logged and acknowledged without error.
func (m *Mux) Dispatch(ctx context.Context, job *Job) error {
	m.mu.RLock()
	handler, ok := m.handlers[job.Name]
	m.mu.RUnlock()

	if !ok {
		if m.logger != nil {
			m.logger.Warn("no handler registered for job, skipping",
				slog.String("job_id", job.ID),
				slog.String("job_name", job.Name),
			)
		}
		return nil
	}

	return handler(ctx, job)
}
