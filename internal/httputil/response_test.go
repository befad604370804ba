package httputil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/grailpoint/storefront/internal/errors"
	"github.com/grailpoint/storefront/internal/httputil"
)

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid signature",
			err:            apperrors.ErrInvalidSignature,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_signature",
		},
		{
			name:           "paid transition failed",
			err:            apperrors.Wrap(apperrors.ErrPaidTransitionFailed, "handler failed"),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "paid_transition_failed",
		},
		{
			name:           "not found",
			err:            apperrors.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "conflict",
			err:            apperrors.ErrConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   "conflict",
		},
		{
			name:           "invalid input",
			err:            apperrors.ErrInvalidInput,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "invalid_input",
		},
		{
			name:           "unauthorized",
			err:            apperrors.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "unauthorized",
		},
		{
			name:           "unknown error",
			err:            apperrors.New("something broke"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			httputil.HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedCode, response.Error)
		})
	}
}

func TestHandleErrorGin_NilError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	httputil.HandleErrorGin(c, nil, nil)
	assert.Empty(t, w.Body.String())
}

func TestHandleBadRequestGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	httputil.HandleBadRequestGin(c, apperrors.New("malformed payload"), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "bad_request", response.Error)
	assert.Equal(t, "malformed payload", response.Message)
}

func TestHandleValidationErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	httputil.HandleValidationErrorGin(c, apperrors.New("amount: must be positive"), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation_error", response.Error)
}
