// Package dto provides data transfer objects for the account HTTP layer.
package dto

import (
	"github.com/assignment-sets/audio-saas-backend/internal/account/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/account/usecase"
)

// ToSyncAccountInput converts a SyncAccountRequest to a use case input
func ToSyncAccountInput(req SyncAccountRequest) usecase.SyncAccountInput {
	return usecase.SyncAccountInput{
		ID:          req.ID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	}
}

// ToUpdateAccountInput converts an UpdateAccountRequest to a use case input
func ToUpdateAccountInput(req UpdateAccountRequest) usecase.UpdateAccountInput {
	return usecase.UpdateAccountInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	}
}

// ToAccountResponse converts a domain Account to an AccountResponse DTO.
// Lifecycle flags stay internal; a blocked or deleted account is simply not
// served by the read paths.
func ToAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}
