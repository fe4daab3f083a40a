package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Email:                "reader@example.com",
		Username:             "reader",
		Password:             "SecurePassword123!",
		PasswordConfirmation: "SecurePassword123!",
		FirstName:            "Ada",
		LastName:             "Lovelace",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	resp, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	require.NotNil(t, resp.User)
	assert.Equal(t, "reader@example.com", resp.User.Email)
	assert.Equal(t, "reader", resp.User.Username)
	assert.Equal(t, "LIB000001", resp.User.LibraryCardNumber)
	assert.Equal(t, 5, resp.User.MaxBooksAllowed)
	assert.False(t, resp.User.IsStaff)

	assert.True(t, strings.HasPrefix(resp.AccessToken, "v4.local."))
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.SessionID)
	assert.Greater(t, resp.ExpiresIn, 0)
}

func TestAuthService_Register_CardNumbersIncrement(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	first, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	req := validRegisterRequest()
	req.Email = "second@example.com"
	req.Username = "second"
	second, err := svc.auth.Register(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "LIB000001", first.User.LibraryCardNumber)
	assert.Equal(t, "LIB000002", second.User.LibraryCardNumber)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	req := validRegisterRequest()
	req.Username = "other"
	_, err = svc.auth.Register(ctx, req)
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "A user with this email already exists.", domainErr.Message)

	details, ok := domainErr.Details.(map[string][]string)
	require.True(t, ok)
	assert.Contains(t, details, "email")
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	req := validRegisterRequest()
	req.Email = "other@example.com"
	_, err = svc.auth.Register(ctx, req)
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "A user with this username already exists.", domainErr.Message)

	details, ok := domainErr.Details.(map[string][]string)
	require.True(t, ok)
	assert.Contains(t, details, "username")
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*RegisterRequest)
		wantMsg string
	}{
		{
			name:    "missing email",
			mutate:  func(r *RegisterRequest) { r.Email = "" },
			wantMsg: "email is required",
		},
		{
			name:    "bad email",
			mutate:  func(r *RegisterRequest) { r.Email = "not-an-email" },
			wantMsg: "email must be a valid email address",
		},
		{
			name:    "short password",
			mutate:  func(r *RegisterRequest) { r.Password = "short"; r.PasswordConfirmation = "short" },
			wantMsg: "password must be at least 8 characters",
		},
		{
			name:    "confirmation mismatch",
			mutate:  func(r *RegisterRequest) { r.PasswordConfirmation = "Different123!" },
			wantMsg: "password_confirmation does not match",
		},
		{
			name:    "bad phone",
			mutate:  func(r *RegisterRequest) { r.PhoneNumber = "not a phone" },
			wantMsg: "phone_number must be a valid phone number",
		},
		{
			name:    "bad date of birth",
			mutate:  func(r *RegisterRequest) { r.DateOfBirth = "15/06/1990" },
			wantMsg: "date_of_birth must be a date in YYYY-MM-DD format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegisterRequest()
			tt.mutate(&req)

			_, err := svc.auth.Register(ctx, req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, tt.wantMsg, domainErr.Message)
		})
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	resp, err := svc.auth.Login(ctx, LoginRequest{
		Email:    "reader@example.com",
		Password: "SecurePassword123!",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader", resp.User.Username)
	assert.NotEmpty(t, resp.AccessToken)
	assert.False(t, resp.User.LastLoginAt.IsZero())

	claims, err := svc.auth.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	// Wrong password and unknown email must be indistinguishable.
	for _, req := range []LoginRequest{
		{Email: "reader@example.com", Password: "WrongPassword1!"},
		{Email: "nobody@example.com", Password: "SecurePassword123!"},
	} {
		_, err := svc.auth.Login(ctx, req)
		require.Error(t, err)

		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.CodeInvalidCredentials, domainErr.Code)
		assert.Equal(t, "invalid email or password", domainErr.Message)
	}
}

func TestAuthService_RefreshTokens_Rotation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	registered, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	refreshed, err := svc.auth.RefreshTokens(ctx, RefreshRequest{RefreshToken: registered.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, registered.SessionID, refreshed.SessionID)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is dead after rotation.
	_, err = svc.auth.RefreshTokens(ctx, RefreshRequest{RefreshToken: registered.RefreshToken})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrTokenExpired))

	// The rotated token still works.
	_, err = svc.auth.RefreshTokens(ctx, RefreshRequest{RefreshToken: refreshed.RefreshToken})
	require.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	registered, err := svc.auth.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	require.NoError(t, svc.auth.Logout(ctx, LogoutRequest{RefreshToken: registered.RefreshToken}))

	_, err = svc.auth.RefreshTokens(ctx, RefreshRequest{RefreshToken: registered.RefreshToken})
	require.Error(t, err)

	// Logging out an unknown token is a no-op.
	require.NoError(t, svc.auth.Logout(ctx, LogoutRequest{RefreshToken: "unknown-token"}))
}
