// Package domain defines the outbox ledger entities and types.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// IntentType identifies the deferred cross-system effect an entry represents.
// The set is closed: workers only process the types they registered handlers for.
type IntentType string

const (
	// IntentCreateArtistProfile grants authorization tuples for a freshly
	// created artist profile.
	IntentCreateArtistProfile IntentType = "CREATE_ARTIST_PROFILE"
)

// Status represents the lifecycle state of an outbox entry.
type Status string

const (
	// StatusPending marks an entry recorded but not yet picked up by a worker.
	StatusPending Status = "PENDING"
	// StatusProcessing marks an entry claimed by a worker (a lease, not a lock).
	StatusProcessing Status = "PROCESSING"
	// StatusCompleted marks the cross-system effect as applied. Terminal.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed marks a retryable failure awaiting redelivery.
	StatusFailed Status = "FAILED"
	// StatusFailedAndRolledBack marks an exhausted entry whose primary write
	// has been compensated. Terminal.
	StatusFailedAndRolledBack Status = "FAILED_AND_ROLLED_BACK"
)

// IsTerminal reports whether the status can never advance again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailedAndRolledBack
}

// OutboxEntry is a durable record of one pending cross-system intent. It is
// created in the same transaction as its owning primary entity and never
// deleted; terminal entries remain as an audit trail.
type OutboxEntry struct {
	ID         uuid.UUID
	IntentType IntentType
	Payload    json.RawMessage
	Status     Status
	Attempts   int
	LastError  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Domain-specific errors for outbox operations.
var (
	// ErrEntryNotFound indicates the referenced ledger entry does not exist.
	ErrEntryNotFound = apperrors.Wrap(apperrors.ErrNotFound, "outbox entry not found")
)
