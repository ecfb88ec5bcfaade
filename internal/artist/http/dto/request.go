// Package dto provides data transfer objects for the artist HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/assignment-sets/audio-saas-backend/internal/validation"
)

// CreateArtistProfileRequest represents the API request for artist profile creation
type CreateArtistProfileRequest struct {
	Name string  `json:"name"`
	Bio  *string `json:"bio"`
}

// Validate validates the CreateArtistProfileRequest
func (r *CreateArtistProfileRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(2, 64).Error("name must be between 2 and 64 characters"),
			appValidation.ArtistName,
		),
		validation.Field(&r.Bio,
			validation.Length(0, 2000).Error("bio must be at most 2000 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// UpdateArtistProfileRequest represents the API request for artist profile updates.
// Omitted fields are left unchanged.
type UpdateArtistProfileRequest struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

// Validate validates the UpdateArtistProfileRequest
func (r *UpdateArtistProfileRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Name,
			appValidation.NotBlank,
			validation.Length(2, 64).Error("name must be between 2 and 64 characters"),
			appValidation.ArtistName,
		),
		validation.Field(&r.Bio,
			validation.Length(0, 2000).Error("bio must be at most 2000 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}
