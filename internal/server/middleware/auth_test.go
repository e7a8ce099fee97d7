package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophnotes/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("success"))
}

func TestAuthMiddleware(t *testing.T) {
	const token = "s3cret-relay-token"

	tests := []struct {
		name            string
		authHeader      string
		expectedMessage string
		expectedStatus  int
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer " + token,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "scheme is case insensitive",
			authHeader:     "bearer " + token,
			expectedStatus: http.StatusOK,
		},
		{
			name:            "missing header",
			authHeader:      "",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "missing token",
		},
		{
			name:            "missing Bearer prefix",
			authHeader:      token,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "invalid token format",
		},
		{
			name:            "wrong scheme",
			authHeader:      "Basic " + token,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "invalid token format",
		},
		{
			name:            "wrong token",
			authHeader:      "Bearer other-token",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "invalid token",
		},
		{
			name:            "token prefix only",
			authHeader:      "Bearer s3cret",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "invalid token",
		},
	}

	handler := AuthMiddleware(setupTestLogger(), token)(http.HandlerFunc(okHandler))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sync/push", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "success", w.Body.String())
				return
			}

			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var errResp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
			assert.Equal(t, "unauthorized", errResp.Error)
			assert.Equal(t, tt.expectedMessage, errResp.Message)
		})
	}
}

func TestAuthMiddleware_EmptyTokenDisablesAuth(t *testing.T) {
	handler := AuthMiddleware(setupTestLogger(), "")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/sync/pull", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
