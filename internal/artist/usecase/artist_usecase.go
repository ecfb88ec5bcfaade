// Package usecase implements the artist business logic and orchestrates artist domain operations.
package usecase

import (
	"context"
	"encoding/json"
	"strings"

	validation "github.com/jellydator/validation"
	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/artist/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/authz"
	"github.com/assignment-sets/audio-saas-backend/internal/database"
	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
	outboxDomain "github.com/assignment-sets/audio-saas-backend/internal/outbox/domain"
	outboxUsecase "github.com/assignment-sets/audio-saas-backend/internal/outbox/usecase"
	appValidation "github.com/assignment-sets/audio-saas-backend/internal/validation"
)

// Relations on artist profile objects in the authorization graph.
const (
	RelationOwner       = "owner"
	RelationPlatformRef = "platform_ref"
	RelationCanManage   = "can_manage"
	RelationCanModerate = "can_moderate"
)

// PlatformName anchors platform-wide roles (moderation, admin) on every
// artist profile through a platform_ref tuple.
const PlatformName = "mainApp"

// CreateProfileInput contains the input data for artist profile creation
type CreateProfileInput struct {
	Name string  `json:"name"`
	Bio  *string `json:"bio"`
}

// UpdateProfileInput contains the input data for artist profile updates.
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

// UseCase defines the interface for artist business logic operations
type UseCase interface {
	CreateProfile(ctx context.Context, accountID string, input CreateProfileInput) (*domain.ArtistProfile, error)
	GetProfileByName(ctx context.Context, name string) (*domain.ArtistProfile, error)
	GetProfileByID(ctx context.Context, requesterID string, id uuid.UUID) (*domain.ArtistProfile, error)
	UpdateProfile(ctx context.Context, requesterID string, id uuid.UUID, input UpdateProfileInput) (*domain.ArtistProfile, error)
}

// ArtistRepository interface defines artist repository operations
type ArtistRepository interface {
	Create(ctx context.Context, profile *domain.ArtistProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ArtistProfile, error)
	GetByName(ctx context.Context, name string) (*domain.ArtistProfile, error)
	Update(ctx context.Context, profile *domain.ArtistProfile) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// ArtistUseCase handles artist-related business logic
type ArtistUseCase struct {
	txManager   database.TxManager
	artistRepo  ArtistRepository
	outboxRepo  outboxUsecase.OutboxEntryRepository
	dispatcher  *outboxUsecase.Dispatcher
	authzClient authz.Client
}

// NewArtistUseCase creates a new ArtistUseCase
func NewArtistUseCase(
	txManager database.TxManager,
	artistRepo ArtistRepository,
	outboxRepo outboxUsecase.OutboxEntryRepository,
	dispatcher *outboxUsecase.Dispatcher,
	authzClient authz.Client,
) *ArtistUseCase {
	return &ArtistUseCase{
		txManager:   txManager,
		artistRepo:  artistRepo,
		outboxRepo:  outboxRepo,
		dispatcher:  dispatcher,
		authzClient: authzClient,
	}
}

func (uc *ArtistUseCase) validateCreateProfileInput(input CreateProfileInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(2, 64).Error("name must be between 2 and 64 characters"),
			appValidation.ArtistName,
		),
		validation.Field(&input.Bio,
			validation.Length(0, 2000).Error("bio must be at most 2000 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

func (uc *ArtistUseCase) validateUpdateProfileInput(input UpdateProfileInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			appValidation.NotBlank,
			validation.Length(2, 64).Error("name must be between 2 and 64 characters"),
			appValidation.ArtistName,
		),
		validation.Field(&input.Bio,
			validation.Length(0, 2000).Error("bio must be at most 2000 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateProfile creates a provisional artist profile together with its
// authorization-grant ledger entry in one transaction, then dispatches the
// entry for processing. The profile row and the ledger row commit or roll
// back together.
func (uc *ArtistUseCase) CreateProfile(
	ctx context.Context,
	accountID string,
	input CreateProfileInput,
) (*domain.ArtistProfile, error) {
	if err := uc.validateCreateProfileInput(input); err != nil {
		return nil, err
	}

	profile := &domain.ArtistProfile{
		ID:        uuid.Must(uuid.NewV7()),
		AccountID: accountID,
		Name:      strings.TrimSpace(input.Name),
		Bio:       input.Bio,
	}

	payloadJSON, err := json.Marshal(CreateArtistProfilePayload{
		ArtistProfileID: profile.ID,
		AccountID:       accountID,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal intent payload")
	}

	entry := &outboxDomain.OutboxEntry{
		ID:         uuid.Must(uuid.NewV7()),
		IntentType: outboxDomain.IntentCreateArtistProfile,
		Payload:    payloadJSON,
		Status:     outboxDomain.StatusPending,
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.artistRepo.Create(ctx, profile); err != nil {
			return err
		}

		if err := uc.outboxRepo.Create(ctx, entry); err != nil {
			return apperrors.Wrap(err, "failed to create outbox entry")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit, best effort. A lost dispatch is recovered by the sweeper.
	uc.dispatcher.Dispatch(ctx, entry.ID)

	return profile, nil
}

// GetProfileByName retrieves a publicly visible artist profile by its name.
// Profiles whose owner is blocked or soft-deleted read as not found.
func (uc *ArtistUseCase) GetProfileByName(ctx context.Context, name string) (*domain.ArtistProfile, error) {
	return uc.artistRepo.GetByName(ctx, name)
}

// GetProfileByID retrieves an artist profile for its owner or a moderator.
// The two authorization checks run in parallel; either grants access.
func (uc *ArtistUseCase) GetProfileByID(
	ctx context.Context,
	requesterID string,
	id uuid.UUID,
) (*domain.ArtistProfile, error) {
	object := authz.ArtistProfileRef(id.String())
	subject := authz.AccountRef(requesterID)

	var canManage, canModerate bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		allowed, err := uc.authzClient.Check(gctx, authz.Tuple{
			User: subject, Relation: RelationCanManage, Object: object,
		})
		canManage = allowed
		return err
	})
	g.Go(func() error {
		allowed, err := uc.authzClient.Check(gctx, authz.Tuple{
			User: subject, Relation: RelationCanModerate, Object: object,
		})
		canModerate = allowed
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !canManage && !canModerate {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "not allowed to view this artist profile")
	}

	return uc.artistRepo.GetByID(ctx, id)
}

// UpdateProfile updates an artist profile after a can_manage check.
func (uc *ArtistUseCase) UpdateProfile(
	ctx context.Context,
	requesterID string,
	id uuid.UUID,
	input UpdateProfileInput,
) (*domain.ArtistProfile, error) {
	if err := uc.validateUpdateProfileInput(input); err != nil {
		return nil, err
	}

	allowed, err := uc.authzClient.Check(ctx, authz.Tuple{
		User:     authz.AccountRef(requesterID),
		Relation: RelationCanManage,
		Object:   authz.ArtistProfileRef(id.String()),
	})
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "not allowed to manage this artist profile")
	}

	profile, err := uc.artistRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		profile.Name = strings.TrimSpace(*input.Name)
	}
	if input.Bio != nil {
		profile.Bio = input.Bio
	}

	if err := uc.artistRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}
