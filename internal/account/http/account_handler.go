// Package http provides HTTP handlers for account operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/assignment-sets/audio-saas-backend/internal/account/http/dto"
	"github.com/assignment-sets/audio-saas-backend/internal/account/usecase"
	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
	"github.com/assignment-sets/audio-saas-backend/internal/httputil"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountUseCase usecase.UseCase
	logger         *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountUseCase usecase.UseCase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountUseCase: accountUseCase,
		logger:         logger,
	}
}

// SyncHandler mirrors an identity-provider user into the store. The route is
// protected by the internal service token middleware, not end-user auth.
// POST /v1/accounts/sync
func (h *AccountHandler) SyncHandler(c *gin.Context) {
	var req dto.SyncAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	account, err := h.accountUseCase.SyncAccount(c.Request.Context(), dto.ToSyncAccountInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// GetHandler retrieves the caller's own account.
// GET /v1/accounts/:id
func (h *AccountHandler) GetHandler(c *gin.Context) {
	accountID, err := h.requireSelf(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	account, err := h.accountUseCase.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// UpdateHandler updates the caller's own account profile.
// PATCH /v1/accounts/:id
func (h *AccountHandler) UpdateHandler(c *gin.Context) {
	accountID, err := h.requireSelf(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	account, err := h.accountUseCase.UpdateAccount(c.Request.Context(), accountID, dto.ToUpdateAccountInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// DeleteHandler starts the deletion of the caller's own account.
// DELETE /v1/accounts/:id
func (h *AccountHandler) DeleteHandler(c *gin.Context) {
	accountID, err := h.requireSelf(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.accountUseCase.DeleteAccount(c.Request.Context(), accountID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// requireSelf resolves the caller identity and checks it matches the :id
// route parameter. Account routes are strictly self-service.
func (h *AccountHandler) requireSelf(c *gin.Context) (string, error) {
	accountID, err := httputil.AccountIDFromGin(c)
	if err != nil {
		return "", err
	}

	if c.Param("id") != accountID {
		return "", apperrors.Wrap(apperrors.ErrForbidden, "accounts can only be managed by their owner")
	}

	return accountID, nil
}
