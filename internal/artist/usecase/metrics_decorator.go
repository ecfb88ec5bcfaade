package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/artist/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/metrics"
)

// artistUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type artistUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps an artist UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &artistUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// CreateProfile records metrics for profile creation operations.
func (a *artistUseCaseWithMetrics) CreateProfile(
	ctx context.Context,
	accountID string,
	input CreateProfileInput,
) (*domain.ArtistProfile, error) {
	start := time.Now()
	profile, err := a.next.CreateProfile(ctx, accountID, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "artist", "profile_create", status)
	a.metrics.RecordDuration(ctx, "artist", "profile_create", time.Since(start), status)

	return profile, err
}

// GetProfileByName records metrics for public profile lookups.
func (a *artistUseCaseWithMetrics) GetProfileByName(
	ctx context.Context,
	name string,
) (*domain.ArtistProfile, error) {
	start := time.Now()
	profile, err := a.next.GetProfileByName(ctx, name)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "artist", "profile_get_by_name", status)
	a.metrics.RecordDuration(ctx, "artist", "profile_get_by_name", time.Since(start), status)

	return profile, err
}

// GetProfileByID records metrics for profile retrieval operations.
func (a *artistUseCaseWithMetrics) GetProfileByID(
	ctx context.Context,
	requesterID string,
	id uuid.UUID,
) (*domain.ArtistProfile, error) {
	start := time.Now()
	profile, err := a.next.GetProfileByID(ctx, requesterID, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "artist", "profile_get", status)
	a.metrics.RecordDuration(ctx, "artist", "profile_get", time.Since(start), status)

	return profile, err
}

// UpdateProfile records metrics for profile update operations.
func (a *artistUseCaseWithMetrics) UpdateProfile(
	ctx context.Context,
	requesterID string,
	id uuid.UUID,
	input UpdateProfileInput,
) (*domain.ArtistProfile, error) {
	start := time.Now()
	profile, err := a.next.UpdateProfile(ctx, requesterID, id, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "artist", "profile_update", status)
	a.metrics.RecordDuration(ctx, "artist", "profile_update", time.Since(start), status)

	return profile, err
}
