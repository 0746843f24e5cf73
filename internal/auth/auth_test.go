package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "tracker.identity"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "service-account",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeSyncWrite, ScopeSyncRead},
	})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "service-account", claims.Subject)
	require.True(t, claims.HasScope(ScopeSyncWrite))
	require.True(t, claims.HasScope(ScopeSyncRead))
	require.False(t, claims.HasScope("admin"))
}

func TestParseRejectsTokenWithoutExpiry(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "service-account",
		"iss":    testConfig.Issuer,
		"scopes": []string{ScopeSyncWrite},
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "service-account",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAcceptsSpaceSeparatedScopes(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "service-account",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": ScopeSyncWrite + " " + ScopeSyncRead,
	})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeSyncRead))
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	m := NewMiddleware(testConfig, nil)
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sync", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "unauthorized", body["type"])
}

func TestMiddlewarePassesClaimsThrough(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "service-account",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeSyncWrite},
	})

	m := NewMiddleware(testConfig, nil)
	var got *Claims
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/sync", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	require.Equal(t, "service-account", got.Subject)
}

func TestMiddlewareSkipsExemptRequests(t *testing.T) {
	m := NewMiddleware(testConfig, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})

	called := false
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}
