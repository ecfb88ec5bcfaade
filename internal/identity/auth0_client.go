package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/auth0/go-auth0"
	"github.com/auth0/go-auth0/management"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// Config holds connection settings for the identity provider tenant.
type Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
}

// Auth0Client implements Client over the Auth0 management API.
type Auth0Client struct {
	mgmt   *management.Management
	logger *slog.Logger
}

// NewAuth0Client creates a management client for the configured tenant.
func NewAuth0Client(ctx context.Context, cfg Config, logger *slog.Logger) (*Auth0Client, error) {
	mgmt, err := management.New(
		cfg.Domain,
		management.WithClientCredentials(ctx, cfg.ClientID, cfg.ClientSecret),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create identity provider client")
	}

	return &Auth0Client{mgmt: mgmt, logger: logger}, nil
}

// UpdateAccount updates the mutable attributes of an account record.
func (c *Auth0Client) UpdateAccount(ctx context.Context, accountID string, attrs AccountAttributes) error {
	user := &management.User{}
	if attrs.DisplayName != "" {
		user.Name = auth0.String(attrs.DisplayName)
	}
	if attrs.Email != "" {
		user.Email = auth0.String(attrs.Email)
	}

	if err := c.mgmt.User.Update(ctx, accountID, user); err != nil {
		if isNotFound(err) {
			return apperrors.Wrap(apperrors.ErrNotFound, "identity provider has no such account")
		}
		return normalizeError(err, "identity provider update failed")
	}

	return nil
}

// SetBlocked toggles whether the account can log in.
func (c *Auth0Client) SetBlocked(ctx context.Context, accountID string, blocked bool) error {
	user := &management.User{Blocked: auth0.Bool(blocked)}

	if err := c.mgmt.User.Update(ctx, accountID, user); err != nil {
		if isNotFound(err) {
			return apperrors.Wrap(apperrors.ErrNotFound, "identity provider has no such account")
		}
		return normalizeError(err, "identity provider block update failed")
	}

	return nil
}

// DeleteAccount permanently removes the account record. A not-found response
// means a previous run already deleted it, which is success for an idempotent
// purge step.
func (c *Auth0Client) DeleteAccount(ctx context.Context, accountID string) error {
	if err := c.mgmt.User.Delete(ctx, accountID); err != nil {
		if isNotFound(err) {
			c.logger.Info("identity provider record already gone, skipping",
				slog.String("account_id", accountID),
			)
			return nil
		}
		return normalizeError(err, "identity provider deletion failed")
	}

	return nil
}

// isNotFound reports whether the management API answered 404.
func isNotFound(err error) bool {
	var mgmtErr management.Error
	if errors.As(err, &mgmtErr) {
		return mgmtErr.Status() == http.StatusNotFound
	}
	return false
}

// normalizeError tags provider failures as transient; the retry budget decides
// when to stop.
func normalizeError(err error, message string) error {
	return apperrors.Wrap(apperrors.ErrTransient, message+": "+err.Error())
}
