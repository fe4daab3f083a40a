package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	userIDKey  ctxKey = "userID"
	emailKey   ctxKey = "email"
	isStaffKey ctxKey = "isStaff"
)

// GetUserID returns the authenticated user ID from context.
// Returns 401 error if user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

// RequireStaff returns the authenticated user ID, rejecting non-staff
// accounts. Staff status comes from the access token claims.
func RequireStaff(ctx context.Context) (string, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return "", err
	}

	isStaff, ok := ctx.Value(isStaffKey).(bool)
	if !ok || !isStaff {
		return "", domainerrors.Forbidden("Staff access required")
	}

	return userID, nil
}

// isStaff reports whether the authenticated user is a staff member.
func isStaff(ctx context.Context) bool {
	staff, ok := ctx.Value(isStaffKey).(bool)
	return ok && staff
}

// setAuthContext stores the verified token claims in context.
func setAuthContext(ctx context.Context, userID, email string, staff bool) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, emailKey, email)
	return context.WithValue(ctx, isStaffKey, staff)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the token claims in context. If no token is present or invalid, continues
// without user in context; handlers use GetUserID to check authentication.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			token := authHeader[7:]
			claims, err := auth.VerifyAccessToken(token)
			if err != nil {
				// Invalid token - continue without user (handler will reject if auth required)
				next.ServeHTTP(w, r)
				return
			}

			ctx := setAuthContext(r.Context(), claims.UserID, claims.Email, claims.IsStaff)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
