package httputil

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

// ContextAccountID is the gin context key under which the authentication
// middleware stores the caller's account id.
const ContextAccountID = "account_id"

// AccountIDFromGin returns the authenticated caller's account id, or an
// unauthorized error when the request carries no identity.
func AccountIDFromGin(c *gin.Context) (string, error) {
	accountID := c.GetString(ContextAccountID)
	if accountID == "" {
		return "", apperrors.Wrap(apperrors.ErrUnauthorized, "missing caller identity")
	}
	return accountID, nil
}
