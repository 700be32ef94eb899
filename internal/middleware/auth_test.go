package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/facechat/matching-server-go/internal/errors"
	"github.com/facechat/matching-server-go/internal/httputil"
)

const testSecret = "test-secret-key-for-auth-middleware-tests"

func signToken(t *testing.T, secret, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func authProbe(m *AuthMiddleware, r *http.Request) (*httptest.ResponseRecorder, string) {
	var gotUserID string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec, gotUserID
}

func TestAuthMiddlewareBearerToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret)

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", time.Hour))

	rec, userID := authProbe(m, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", userID)
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret)

	r := httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, testSecret, "user-2", time.Hour), nil)

	rec, userID := authProbe(m, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", userID)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret)

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)

	rec, _ := authProbe(m, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, errorCode(t, rec))
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	m := NewAuthMiddleware(testSecret)

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "some-other-secret", "user-1", time.Hour))

	rec, _ := authProbe(m, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, errorCode(t, rec))
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret)

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", -time.Minute))

	rec, _ := authProbe(m, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.ErrCodeTokenExpired, errorCode(t, rec))
}

func TestAuthMiddlewareEmptySubject(t *testing.T) {
	m := NewAuthMiddleware(testSecret)

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "", time.Hour))

	rec, _ := authProbe(m, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsUnsignedAlgorithm(t *testing.T) {
	m := NewAuthMiddleware(testSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	rec, _ := authProbe(m, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
