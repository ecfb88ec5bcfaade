// Package dto provides data transfer objects for the account HTTP layer.
package dto

import "time"

// AccountResponse represents the API response for an account
type AccountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
