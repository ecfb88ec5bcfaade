// Package domain defines the core artist domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// ArtistProfile represents a public artist identity owned by one account.
// A profile is provisional until its authorization grants settle: the outbox
// worker either completes the grants or compensates by deleting the row.
type ArtistProfile struct {
	ID        uuid.UUID
	AccountID string
	Name      string
	Bio       *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain-specific errors for artist operations.
var (
	// ErrProfileNotFound indicates the requested artist profile does not exist.
	ErrProfileNotFound = errors.Wrap(errors.ErrNotFound, "artist profile not found")

	// ErrArtistNameTaken indicates another profile already holds the name.
	ErrArtistNameTaken = errors.Wrap(errors.ErrConflict, "artist name already taken")

	// ErrProfileExists indicates the account already owns an artist profile.
	ErrProfileExists = errors.Wrap(errors.ErrConflict, "account already has an artist profile")
)
