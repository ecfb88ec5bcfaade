// Package http provides HTTP handlers for artist profile operations.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/assignment-sets/audio-saas-backend/internal/artist/http/dto"
	"github.com/assignment-sets/audio-saas-backend/internal/artist/usecase"
	"github.com/assignment-sets/audio-saas-backend/internal/httputil"
)

// ArtistHandler handles artist-related HTTP requests
type ArtistHandler struct {
	artistUseCase usecase.UseCase
	logger        *slog.Logger
}

// NewArtistHandler creates a new ArtistHandler
func NewArtistHandler(artistUseCase usecase.UseCase, logger *slog.Logger) *ArtistHandler {
	return &ArtistHandler{
		artistUseCase: artistUseCase,
		logger:        logger,
	}
}

// CreateHandler creates a new artist profile for the authenticated account.
// POST /v1/artists
func (h *ArtistHandler) CreateHandler(c *gin.Context) {
	accountID, err := httputil.AccountIDFromGin(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var req dto.CreateArtistProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	profile, err := h.artistUseCase.CreateProfile(c.Request.Context(), accountID, dto.ToCreateProfileInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ToArtistProfileResponse(profile))
}

// GetByNameHandler retrieves a public artist profile by name.
// GET /v1/artists/:name
func (h *ArtistHandler) GetByNameHandler(c *gin.Context) {
	name := c.Param("name")

	profile, err := h.artistUseCase.GetProfileByName(c.Request.Context(), name)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToArtistProfileResponse(profile))
}

// GetByIDHandler retrieves an artist profile for its owner or a moderator.
// GET /v1/artists/id/:id
func (h *ArtistHandler) GetByIDHandler(c *gin.Context) {
	accountID, err := httputil.AccountIDFromGin(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, errors.New("invalid artist profile id"), h.logger)
		return
	}

	profile, err := h.artistUseCase.GetProfileByID(c.Request.Context(), accountID, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToArtistProfileResponse(profile))
}

// UpdateHandler updates an artist profile after an ownership check.
// PATCH /v1/artists/id/:id
func (h *ArtistHandler) UpdateHandler(c *gin.Context) {
	accountID, err := httputil.AccountIDFromGin(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, errors.New("invalid artist profile id"), h.logger)
		return
	}

	var req dto.UpdateArtistProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	profile, err := h.artistUseCase.UpdateProfile(c.Request.Context(), accountID, id, dto.ToUpdateProfileInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToArtistProfileResponse(profile))
}
