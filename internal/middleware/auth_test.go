package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credpal/wallet-api/internal/auth"
	"github.com/credpal/wallet-api/internal/logging"
	"github.com/credpal/wallet-api/internal/middleware"
)

const testSecret = "test-secret"

func TestAuth_SetsUserIDAndEnrichesLogger(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)

	var buf bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&buf, nil))

	var gotID uuid.UUID
	var gotOK bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = auth.UserIDFromContext(r.Context())
		logging.FromContext(r.Context()).Info("handling request")
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	r = r.WithContext(logging.WithLogger(r.Context(), baseLogger))
	r.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	middleware.Auth(testSecret)(inner).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gotOK)
	assert.Equal(t, userID, gotID)

	// Logs emitted past this middleware carry the authenticated user.
	assert.Contains(t, buf.String(), `"user_id"`)
	assert.Contains(t, buf.String(), userID.String())
}

func TestAuth_MissingHeader(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without credentials")
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	middleware.Auth(testSecret)(inner).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RejectsBadToken(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with a bad token")
	})

	for _, header := range []string{
		"Bearer not-a-token",
		"Basic dXNlcjpwYXNz",
		"Bearer ",
	} {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		r.Header.Set("Authorization", header)
		middleware.Auth(testSecret)(inner).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
	}
}

func TestAuth_RejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken(uuid.New(), "other-secret", time.Hour)
	require.NoError(t, err)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached with a forged token")
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	middleware.Auth(testSecret)(inner).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
