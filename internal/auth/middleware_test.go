package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func protected(m *JWTMiddleware) (http.Handler, *Identity) {
	var seen Identity
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func call(h http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	h, seen := protected(NewJWTMiddleware(testSecret, "kb"))
	tok, err := SignToken(testSecret, "kb", "user_123", "Ada", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(h, tok))
	assert.Equal(t, "user_123", seen.OwnerID)
	assert.Equal(t, "Ada", seen.Name)
}

func TestAuthenticateRejects(t *testing.T) {
	h, _ := protected(NewJWTMiddleware(testSecret, "kb"))

	wrongSecret, _ := SignToken("other", "kb", "user_123", "", time.Hour)
	expired, _ := SignToken(testSecret, "kb", "user_123", "", -time.Minute)
	wrongIssuer, _ := SignToken(testSecret, "someone-else", "user_123", "", time.Hour)
	noSubject, _ := SignToken(testSecret, "kb", "", "", time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_123", Issuer: "kb"},
	}).SignedString([]byte(testSecret))

	for name, tok := range map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"wrong secret": wrongSecret,
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, call(h, tok))
		})
	}
}

func TestIssuerOptional(t *testing.T) {
	h, _ := protected(NewJWTMiddleware(testSecret, ""))
	tok, err := SignToken(testSecret, "anything", "user_1", "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(h, tok))
}
