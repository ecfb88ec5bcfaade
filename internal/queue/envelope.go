package queue

import (
	"encoding/json"
	"time"
)

// maxBackoff caps the delay between redeliveries regardless of attempt count.
const maxBackoff = 5 * time.Minute

// envelope is the wire format stored in the stream. It carries its own attempt
// counter so that redeliveries survive process restarts without broker support
// for per-message delivery metadata.
type envelope struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	AttemptsMade int             `json:"attempts_made"`
	MaxAttempts  int             `json:"max_attempts"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
}

func (e *envelope) job() *Job {
	return &Job{
		ID:           e.ID,
		Name:         e.Name,
		Data:         e.Data,
		AttemptsMade: e.AttemptsMade,
		MaxAttempts:  e.MaxAttempts,
	}
}

// backoffDelay computes the exponential delay before the next redelivery:
// base * 2^attemptsMade, capped at maxBackoff.
func backoffDelay(base time.Duration, attemptsMade int) time.Duration {
	if base <= 0 {
		base = time.Second
	}

	delay := base
	for i := 0; i < attemptsMade; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}

	return delay
}
