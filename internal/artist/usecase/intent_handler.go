package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/authz"
	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
	outboxDomain "github.com/assignment-sets/audio-saas-backend/internal/outbox/domain"
)

// CreateArtistProfilePayload is the ledger payload for CREATE_ARTIST_PROFILE entries.
type CreateArtistProfilePayload struct {
	ArtistProfileID uuid.UUID `json:"artist_profile_id"`
	AccountID       string    `json:"account_id"`
}

// CreateArtistProfileHandler applies the authorization grants for a freshly
// created artist profile and compensates by deleting the provisional profile
// row, freeing its unique name.
type CreateArtistProfileHandler struct {
	artistRepo  ArtistRepository
	authzClient authz.Client
	logger      *slog.Logger
}

// NewCreateArtistProfileHandler creates a new CreateArtistProfileHandler
func NewCreateArtistProfileHandler(
	artistRepo ArtistRepository,
	authzClient authz.Client,
	logger *slog.Logger,
) *CreateArtistProfileHandler {
	return &CreateArtistProfileHandler{
		artistRepo:  artistRepo,
		authzClient: authzClient,
		logger:      logger,
	}
}

// Apply writes the owner and platform_ref tuples for the profile. The authz
// client absorbs duplicate-write rejections, so a replay after a crash is
// harmless.
func (h *CreateArtistProfileHandler) Apply(ctx context.Context, entry *outboxDomain.OutboxEntry) error {
	payload, err := decodePayload(entry)
	if err != nil {
		return err
	}

	object := authz.ArtistProfileRef(payload.ArtistProfileID.String())
	tuples := []authz.Tuple{
		{User: authz.AccountRef(payload.AccountID), Relation: RelationOwner, Object: object},
		{User: authz.PlatformRef(PlatformName), Relation: RelationPlatformRef, Object: object},
	}

	if err := h.authzClient.WriteTuples(ctx, tuples); err != nil {
		return err
	}

	if h.logger != nil {
		h.logger.Info("authorization grants applied for artist profile",
			slog.String("artist_profile_id", payload.ArtistProfileID.String()),
			slog.String("account_id", payload.AccountID),
		)
	}

	return nil
}

// Compensate deletes the provisional profile row. A profile that is already
// gone counts as compensated.
func (h *CreateArtistProfileHandler) Compensate(ctx context.Context, entry *outboxDomain.OutboxEntry) error {
	payload, err := decodePayload(entry)
	if err != nil {
		return err
	}

	rows, err := h.artistRepo.Delete(ctx, payload.ArtistProfileID)
	if err != nil {
		return err
	}

	if h.logger != nil {
		h.logger.Warn("rolled back provisional artist profile",
			slog.String("artist_profile_id", payload.ArtistProfileID.String()),
			slog.Int64("rows_deleted", rows),
		)
	}

	return nil
}

func decodePayload(entry *outboxDomain.OutboxEntry) (*CreateArtistProfilePayload, error) {
	var payload CreateArtistProfilePayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPermanent, "malformed intent payload: "+err.Error())
	}
	return &payload, nil
}
