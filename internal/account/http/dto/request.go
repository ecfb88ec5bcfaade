// Package dto provides data transfer objects for the account HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/assignment-sets/audio-saas-backend/internal/validation"
)

// SyncAccountRequest represents the identity-provider sync webhook payload
type SyncAccountRequest struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Validate validates the SyncAccountRequest
func (r *SyncAccountRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ID,
			validation.Required.Error("id is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			appValidation.Email,
		),
		validation.Field(&r.DisplayName,
			validation.Required.Error("display_name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("display_name must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// UpdateAccountRequest represents the API request for account profile updates.
// Omitted fields are left unchanged.
type UpdateAccountRequest struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
}

// Validate validates the UpdateAccountRequest
func (r *UpdateAccountRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Email,
			appValidation.Email,
		),
		validation.Field(&r.DisplayName,
			appValidation.NotBlank,
			validation.Length(1, 255).Error("display_name must be between 1 and 255 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}
