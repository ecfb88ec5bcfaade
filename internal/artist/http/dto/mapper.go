// Package dto provides data transfer objects for the artist HTTP layer.
package dto

import (
	"github.com/assignment-sets/audio-saas-backend/internal/artist/domain"
	"github.com/assignment-sets/audio-saas-backend/internal/artist/usecase"
)

// ToCreateProfileInput converts a CreateArtistProfileRequest to a use case input
func ToCreateProfileInput(req CreateArtistProfileRequest) usecase.CreateProfileInput {
	return usecase.CreateProfileInput{
		Name: req.Name,
		Bio:  req.Bio,
	}
}

// ToUpdateProfileInput converts an UpdateArtistProfileRequest to a use case input
func ToUpdateProfileInput(req UpdateArtistProfileRequest) usecase.UpdateProfileInput {
	return usecase.UpdateProfileInput{
		Name: req.Name,
		Bio:  req.Bio,
	}
}

// ToArtistProfileResponse converts a domain ArtistProfile to an ArtistProfileResponse DTO
func ToArtistProfileResponse(profile *domain.ArtistProfile) ArtistProfileResponse {
	return ArtistProfileResponse{
		ID:        profile.ID,
		AccountID: profile.AccountID,
		Name:      profile.Name,
		Bio:       profile.Bio,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
}
