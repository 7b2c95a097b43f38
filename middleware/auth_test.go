package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-for-testing-only")

func mockClerkJWT(t *testing.T, subject string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(expiresIn).Unix(),
		"sid": "sess_test123",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

// useTestVerifier swaps Clerk verification for HMAC verification with the
// test secret.
func useTestVerifier(t *testing.T) {
	t.Helper()
	original := verifyToken
	verifyToken = func(_ context.Context, token string) (string, error) {
		parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return testSecret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return "", err
		}
		return parsed.Claims.GetSubject()
	}
	t.Cleanup(func() { verifyToken = original })
}

func echoClerkID(w http.ResponseWriter, r *http.Request) {
	id, ok := GetClerkID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(id))
}

func TestClerkAuthMiddleware(t *testing.T) {
	useTestVerifier(t)
	handler := ClerkAuthMiddleware(http.HandlerFunc(echoClerkID))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + mockClerkJWT(t, "user_123", time.Hour), http.StatusOK, "user_123"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"no bearer prefix", mockClerkJWT(t, "user_123", time.Hour), http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"expired token", "Bearer " + mockClerkJWT(t, "user_123", -time.Hour), http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + mockClerkJWT(t, "", time.Hour), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ladder", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rr.Body.String())
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestClerkAuthMiddleware_VerifierError(t *testing.T) {
	original := verifyToken
	verifyToken = func(context.Context, string) (string, error) { return "", errors.New("jwks unavailable") }
	t.Cleanup(func() { verifyToken = original })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rr := httptest.NewRecorder()
	ClerkAuthMiddleware(http.HandlerFunc(echoClerkID)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetClerkID(t *testing.T) {
	_, ok := GetClerkID(context.Background())
	assert.False(t, ok)

	_, ok = GetClerkID(context.WithValue(context.Background(), ClerkIDKey, ""))
	assert.False(t, ok)

	id, ok := GetClerkID(context.WithValue(context.Background(), ClerkIDKey, "user_1"))
	assert.True(t, ok)
	assert.Equal(t, "user_1", id)
}
