package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	ierr "github.com/yourusername/invoice-desk/errors"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
		expectedDetail  string
	}{
		{
			name: "validation with details",
			err: ierr.NewError("bad").
				WithHint("Invalid request").
				WithReportableDetails(map[string]any{"fields": map[string]string{"date": "is required"}}).
				Mark(ierr.ErrValidation),
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request",
			expectedDetail:  "fields",
		},
		{
			name: "upstream with raw response",
			err: ierr.NewError("parse").
				WithHint("Failed to parse AI response").
				WithReportableDetails(map[string]any{"rawResponse": "nope"}).
				Mark(ierr.ErrHTTPClient),
			expectedStatus:  http.StatusBadGateway,
			expectedMessage: "Failed to parse AI response",
			expectedDetail:  "rawResponse",
		},
		{
			name:            "conflict",
			err:             ierr.NewError("stale").WithHint("Invoice number is no longer available").Mark(ierr.ErrVersionConflict),
			expectedStatus:  http.StatusConflict,
			expectedMessage: "Invoice number is no longer available",
		},
		{
			name:            "plain error",
			err:             errors.New("boom"),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ErrorHandler())
			router.GET("/test", func(c *gin.Context) {
				_ = c.Error(tt.err)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedMessage, resp.Error.Display)
			if tt.expectedDetail != "" {
				assert.Contains(t, resp.Error.Details, tt.expectedDetail)
			} else {
				assert.Empty(t, resp.Error.Details)
			}
		})
	}
}
