// Package dto provides data transfer objects for the artist HTTP layer.
package dto

import (
	"time"

	"github.com/google/uuid"
)

// ArtistProfileResponse represents the API response for an artist profile
type ArtistProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Bio       *string   `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
