package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(email, username string) map[string]any {
	return map[string]any{
		"email":                 email,
		"username":              username,
		"password":              "password123!",
		"password_confirmation": "password123!",
		"first_name":            "Ada",
		"last_name":             "Lovelace",
	}
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", registerBody("ada@example.com", "ada"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.True(t, strings.HasPrefix(envelope.Data.AccessToken, "v4.local."))
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
	assert.Equal(t, "ada@example.com", envelope.Data.User.Email)
	assert.Equal(t, "LIB000001", envelope.Data.User.LibraryCardNumber)
	assert.False(t, envelope.Data.User.IsStaff)
}

func TestRegister_NeverExposesPasswordHash(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", registerBody("ada@example.com", "ada"))
	require.Equal(t, http.StatusCreated, resp.Code)

	assert.NotContains(t, resp.Body.String(), "password_hash")
	assert.NotContains(t, resp.Body.String(), "argon2")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", registerBody("ada@example.com", "ada"))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Post("/api/v1/auth/register", registerBody("ada@example.com", "ada2"))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	envelope := decodeEnvelope[any](t, resp.Body.Bytes())
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Equal(t, "A user with this email already exists.", envelope.Message)
	assert.Contains(t, envelope.Details, "email")
}

func TestRegister_PasswordMismatch(t *testing.T) {
	ts := newTestServer(t)

	body := registerBody("ada@example.com", "ada")
	body["password_confirmation"] = "different123!"

	resp := ts.api.Post("/api/v1/auth/register", body)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	envelope := decodeEnvelope[any](t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Equal(t, "password_confirmation does not match", envelope.Message)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ada@example.com", "ada", false)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "password123!",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, "ada", envelope.Data.User.Username)

	claims, err := ts.tokenService.VerifyAccessToken(envelope.Data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, envelope.Data.User.ID, claims.UserID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "ada@example.com", "ada", false)

	// Wrong password and unknown email produce the same response, so the
	// endpoint does not leak which emails are registered.
	for _, body := range []map[string]any{
		{"email": "ada@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "password123!"},
	} {
		resp := ts.api.Post("/api/v1/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, resp.Code)

		envelope := decodeEnvelope[any](t, resp.Body.Bytes())
		assert.Equal(t, "INVALID_CREDENTIALS", envelope.Code)
		assert.Equal(t, "invalid email or password", envelope.Message)
	}
}

func TestRefresh_RotatesTokens(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", registerBody("ada@example.com", "ada"))
	require.Equal(t, http.StatusCreated, resp.Code)
	registered := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": registered.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	refreshed := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.NotEqual(t, registered.Data.RefreshToken, refreshed.Data.RefreshToken)

	// The old token was invalidated by the rotation.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": registered.Data.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	envelope := decodeEnvelope[any](t, resp.Body.Bytes())
	assert.Equal(t, "TOKEN_EXPIRED", envelope.Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", registerBody("ada@example.com", "ada"))
	require.Equal(t, http.StatusCreated, resp.Code)
	registered := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/auth/logout", map[string]any{
		"refresh_token": registered.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": registered.Data.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	// Logging out an unknown token is a no-op, not an error.
	resp = ts.api.Post("/api/v1/auth/logout", map[string]any{
		"refresh_token": "unknown-token",
	})
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthRateLimit(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{"email": "ada@example.com", "password": "wrong"}

	var limited bool
	for i := 0; i < 30; i++ {
		resp := ts.api.Post("/api/v1/auth/login", body, "X-Forwarded-For: 203.0.113.7")
		if resp.Code == http.StatusTooManyRequests {
			limited = true
			envelope := decodeEnvelope[any](t, resp.Body.Bytes())
			assert.False(t, envelope.Success)
			assert.Equal(t, "Too many requests. Please try again later.", envelope.Error)
			break
		}
	}
	assert.True(t, limited, "expected a 429 once the burst was exhausted")
}

func TestAuthRateLimit_DoesNotCoverProfile(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "ada@example.com", "ada", false)

	for i := 0; i < 30; i++ {
		resp := ts.api.Get("/api/v1/auth/profile", bearer(token), "X-Forwarded-For: 203.0.113.8")
		require.Equal(t, http.StatusOK, resp.Code)
	}
}
