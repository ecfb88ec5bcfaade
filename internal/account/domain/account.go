// Package domain defines the core account domain entities and types.
package domain

import (
	"time"

	"github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// Account mirrors an identity-provider user inside the relational store. The
// id is the provider's subject identifier, so the same key addresses the
// account in the database, the identity provider and the authorization graph.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	IsBlocked   bool
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsDeleted reports whether the account has been soft-deleted.
func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// Domain-specific errors for account operations.
var (
	// ErrAccountNotFound indicates the requested account does not exist or is inactive.
	ErrAccountNotFound = errors.Wrap(errors.ErrNotFound, "account not found")

	// ErrSocialLoginUpdate indicates profile updates are not possible for
	// accounts managed by a social identity provider.
	ErrSocialLoginUpdate = errors.Wrap(errors.ErrInvalidInput, "social login accounts cannot be updated here")
)
