// Package identity defines the identity-provider contract and its Auth0-backed
// implementation. The provider owns account credentials and login state; the
// application only mirrors profile attributes and lifecycle flags.
package identity

import "context"

// AccountAttributes carries the mutable profile attributes mirrored to the
// identity provider. Empty fields are left unchanged.
type AccountAttributes struct {
	DisplayName string
	Email       string
}

// Client is the call contract against the identity provider. All calls are
// remote and may fail transiently; implementations normalize SDK errors into
// the application's tagged error set.
type Client interface {
	// UpdateAccount updates the mutable attributes of an account record.
	UpdateAccount(ctx context.Context, accountID string, attrs AccountAttributes) error
	// SetBlocked toggles whether the account can log in.
	SetBlocked(ctx context.Context, accountID string, blocked bool) error
	// DeleteAccount permanently removes the account record. Deleting an account
	// that is already gone is success, not an error.
	DeleteAccount(ctx context.Context, accountID string) error
}
