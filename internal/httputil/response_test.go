package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	return c, recorder
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "conflict"},
		{"invalid input", apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input"},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"transient", apperrors.ErrTransient, http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "internal_error"},
		{
			"wrapped not found",
			apperrors.Wrap(apperrors.ErrNotFound, "artist profile not found"),
			http.StatusNotFound,
			"not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, recorder := newTestContext(t)

			HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.expectedStatus, recorder.Code)

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}
}

func TestHandleErrorGin_NilError(t *testing.T) {
	c, recorder := newTestContext(t)

	HandleErrorGin(c, nil, nil)

	assert.Empty(t, recorder.Body.String())
}

func TestHandleBadRequestGin(t *testing.T) {
	c, recorder := newTestContext(t)

	HandleBadRequestGin(c, assert.AnError, nil)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "bad_request", response.Error)
}

func TestHandleValidationErrorGin(t *testing.T) {
	c, recorder := newTestContext(t)

	HandleValidationErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "name is required"), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "invalid_input", response.Error)
}
