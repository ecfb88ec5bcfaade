// Package usecase implements the account business logic and orchestrates account domain operations.
package usecase

import (
	"context"
	"log/slog"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/assignment-sets/audio-saas-backend/internal/account/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/identity"
	"github.com/assignment-sets/audio-saas-backend/internal/queue"
	appValidation "github.com/assignment-sets/audio-saas-backend/internal/validation"
)

// databaseConnectionPrefix marks accounts managed by the username/password
// connection. Social-login subjects carry other prefixes and their profile
// lives with the social provider.
const databaseConnectionPrefix = "auth0|"

// SyncAccountInput contains the input data for the identity-provider sync webhook
type SyncAccountInput struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// UpdateAccountInput contains the input data for account profile updates.
// Nil fields are left unchanged.
type UpdateAccountInput struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
}

// UseCase defines the interface for account business logic operations
type UseCase interface {
	SyncAccount(ctx context.Context, input SyncAccountInput) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
	UpdateAccount(ctx context.Context, id string, input UpdateAccountInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// AccountRepository interface defines account repository operations
type AccountRepository interface {
	Upsert(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetActiveByID(ctx context.Context, id string) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) (int64, error)
}

// AccountUseCase handles account-related business logic
type AccountUseCase struct {
	accountRepo    AccountRepository
	identityClient identity.Client
	enqueuer       queue.Enqueuer
	logger         *slog.Logger
}

// NewAccountUseCase creates a new AccountUseCase
func NewAccountUseCase(
	accountRepo AccountRepository,
	identityClient identity.Client,
	enqueuer queue.Enqueuer,
	logger *slog.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		accountRepo:    accountRepo,
		identityClient: identityClient,
		enqueuer:       enqueuer,
		logger:         logger,
	}
}

func (uc *AccountUseCase) validateSyncAccountInput(input SyncAccountInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.ID,
			validation.Required.Error("id is required"),
			appValidation.NotBlank,
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.Email,
		),
		validation.Field(&input.DisplayName,
			validation.Required.Error("display_name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("display_name must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

func (uc *AccountUseCase) validateUpdateAccountInput(input UpdateAccountInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Email,
			appValidation.Email,
		),
		validation.Field(&input.DisplayName,
			appValidation.NotBlank,
			validation.Length(1, 255).Error("display_name must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// SyncAccount mirrors an identity-provider user into the relational store.
// The operation is an upsert keyed on the provider subject id, so webhook
// replays converge on the same row.
func (uc *AccountUseCase) SyncAccount(ctx context.Context, input SyncAccountInput) (*domain.Account, error) {
	if err := uc.validateSyncAccountInput(input); err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:          strings.TrimSpace(input.ID),
		Email:       strings.TrimSpace(strings.ToLower(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
	}

	if err := uc.accountRepo.Upsert(ctx, account); err != nil {
		return nil, err
	}

	return uc.accountRepo.GetByID(ctx, account.ID)
}

// GetAccountByID retrieves an active account. Blocked or soft-deleted
// accounts read as not found.
func (uc *AccountUseCase) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetActiveByID(ctx, id)
}

// UpdateAccount updates an account's profile, identity provider first and
// database second. When the database write fails, the identity-provider
// change is rolled back so both systems keep the old profile.
func (uc *AccountUseCase) UpdateAccount(
	ctx context.Context,
	id string,
	input UpdateAccountInput,
) (*domain.Account, error) {
	if !strings.HasPrefix(id, databaseConnectionPrefix) {
		return nil, domain.ErrSocialLoginUpdate
	}

	if err := uc.validateUpdateAccountInput(input); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := identity.AccountAttributes{
		DisplayName: account.DisplayName,
		Email:       account.Email,
	}

	if input.Email != nil {
		account.Email = strings.TrimSpace(strings.ToLower(*input.Email))
	}
	if input.DisplayName != nil {
		account.DisplayName = strings.TrimSpace(*input.DisplayName)
	}

	attrs := identity.AccountAttributes{
		DisplayName: account.DisplayName,
		Email:       account.Email,
	}

	if err := uc.identityClient.UpdateAccount(ctx, id, attrs); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.Update(ctx, account); err != nil {
		// Put the identity provider back the way it was.
		if rbErr := uc.identityClient.UpdateAccount(ctx, id, previous); rbErr != nil && uc.logger != nil {
			uc.logger.Error("failed to roll back identity-provider profile update",
				slog.String("account_id", id),
				slog.Any("error", rbErr),
			)
		}
		return nil, err
	}

	return account, nil
}

// DeleteAccount starts the two-phase account deletion: block the identity
// immediately, soft-delete the row, then hand the destructive cleanup to the
// background pipeline. Deleting an already-deleted account is a no-op.
func (uc *AccountUseCase) DeleteAccount(ctx context.Context, id string) error {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if account.IsDeleted() {
		if uc.logger != nil {
			uc.logger.Info("account already deleted, nothing to do",
				slog.String("account_id", id),
			)
		}
		return nil
	}

	if err := uc.identityClient.SetBlocked(ctx, id, true); err != nil {
		return err
	}

	if err := uc.accountRepo.SoftDelete(ctx, id); err != nil {
		// Unblock so the account is not locked out by a half-done delete.
		if rbErr := uc.identityClient.SetBlocked(ctx, id, false); rbErr != nil && uc.logger != nil {
			uc.logger.Error("failed to unblock account after soft-delete failure",
				slog.String("account_id", id),
				slog.Any("error", rbErr),
			)
		}
		return err
	}

	// Best effort. A lost job leaves a soft-deleted account, which is safe;
	// the cleanup can be re-triggered at any time.
	if _, err := uc.enqueuer.Enqueue(ctx, JobAccountCleanup, CleanupPayload{AccountID: id}); err != nil {
		if uc.logger != nil {
			uc.logger.Error("failed to enqueue account cleanup",
				slog.String("account_id", id),
				slog.Any("error", err),
			)
		}
	}

	return nil
}
