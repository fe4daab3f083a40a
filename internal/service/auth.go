// Package service implements the application logic between the HTTP API
// and the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// dateLayout is the wire format for calendar dates (date of birth,
// publish dates, loan filters).
const dateLayout = "2006-01-02"

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove any options (like omitempty, -)
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})
	// ISBNs are digit strings of length 10 or 13; the builtin isbn
	// validators accept hyphenated forms we do not store.
	if err := v.RegisterValidation("isbn_digits", func(fl validator.FieldLevel) bool {
		return domain.IsValidISBN(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}()

// AuthService handles user authentication (register, login, token verification).
// Session management is delegated to SessionService.
type AuthService struct {
	store           store.Store
	tokenService    *auth.TokenService
	sessionService  *SessionService
	defaultMaxBooks int
	logger          *slog.Logger
}

// NewAuthService creates a new authentication service. defaultMaxBooks
// is the borrowing quota assigned to new members; zero means the domain
// default.
func NewAuthService(
	store store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	defaultMaxBooks int,
	logger *slog.Logger,
) *AuthService {
	if defaultMaxBooks <= 0 {
		defaultMaxBooks = domain.DefaultMaxBooksAllowed
	}
	return &AuthService{
		store:           store,
		tokenService:    tokenService,
		sessionService:  sessionService,
		defaultMaxBooks: defaultMaxBooks,
		logger:          logger,
	}
}

// RegisterRequest contains new member registration data.
type RegisterRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Username             string `json:"username" validate:"required,min=3,max=150"`
	Password             string `json:"password" validate:"required,min=8,max=1024"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	FirstName            string `json:"first_name" validate:"omitempty,max=150"`
	LastName             string `json:"last_name" validate:"omitempty,max=150"`
	PhoneNumber          string `json:"phone_number" validate:"omitempty,e164"`
	DateOfBirth          string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	IPAddress            string `json:"-"` // Extracted from request by handler
	UserAgent            string `json:"-"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"` // Extracted from request by handler
	UserAgent string `json:"-"`
}

// RefreshRequest carries the refresh token being rotated.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}

// LogoutRequest identifies the session to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Register creates a new member account and logs it in.
// Email and username must both be unused; the library card number is
// assigned when the account row is first saved.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	dateOfBirth, err := parseOptionalDate(req.DateOfBirth, "date_of_birth")
	if err != nil {
		return nil, err
	}
	if dateOfBirth != nil && dateOfBirth.After(time.Now()) {
		return nil, domainerrors.Validation("date_of_birth cannot be in the future")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Record: domain.Record{
			ID: userID,
		},
		Email:           req.Email,
		Username:        req.Username,
		PasswordHash:    passwordHash,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		PhoneNumber:     req.PhoneNumber,
		DateOfBirth:     dateOfBirth,
		MaxBooksAllowed: s.defaultMaxBooks,
		LastLoginAt:     time.Now(),
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			field, msg := "username", "A user with this username already exists."
			if _, lookupErr := s.store.GetUserByEmail(ctx, req.Email); lookupErr == nil {
				field, msg = "email", "A user with this email already exists."
			}
			return nil, domainerrors.ValidationWithDetails(msg, map[string][]string{field: {msg}})
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User registered",
			"user_id", userID,
			"library_card", user.LibraryCardNumber,
		)
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// Login authenticates a user and creates a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// Log but don't fail login
		if s.logger != nil {
			s.logger.Warn("Failed to update last login time",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User logged in", "user_id", user.ID)
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// RefreshTokens rotates an access/refresh token pair.
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:            user,
		SessionResponse: *sessionResp,
	}, nil
}

// Logout revokes the session holding the given refresh token.
// Unknown tokens are treated as already logged out.
func (s *AuthService) Logout(ctx context.Context, req LogoutRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	tokenHash := auth.HashRefreshToken(req.RefreshToken)
	session, err := s.store.GetSessionByRefreshToken(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	return s.sessionService.DeleteSession(ctx, session.ID)
}

// VerifyAccessToken validates an access token and returns its claims.
func (s *AuthService) VerifyAccessToken(tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired access token").WithCause(err)
	}
	return claims, nil
}

// parseOptionalDate parses a YYYY-MM-DD string, returning nil for empty input.
func parseOptionalDate(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, domainerrors.Validationf("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

// formatValidationError converts validator errors to user-friendly domain errors.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		// Return first validation error as a domain error
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				return domainerrors.Validationf("%s is required", field)
			case "email":
				return domainerrors.Validationf("%s must be a valid email address", field)
			case "min":
				return domainerrors.Validationf("%s must be at least %s characters", field, e.Param())
			case "max":
				return domainerrors.Validationf("%s exceeds maximum length of %s characters", field, e.Param())
			case "eqfield":
				return domainerrors.Validationf("%s does not match", field)
			case "e164":
				return domainerrors.Validationf("%s must be a valid phone number", field)
			case "datetime":
				return domainerrors.Validationf("%s must be a date in YYYY-MM-DD format", field)
			case "len":
				return domainerrors.Validationf("%s must be exactly %s characters", field, e.Param())
			case "isbn_digits":
				return domainerrors.Validationf("%s must be a 10 or 13 digit number", field)
			case "numeric":
				return domainerrors.Validationf("%s must contain only digits", field)
			case "gt":
				return domainerrors.Validationf("%s must be greater than %s", field, e.Param())
			case "oneof":
				return domainerrors.Validationf("%s must be one of: %s", field, e.Param())
			default:
				return domainerrors.Validationf("%s is invalid", field)
			}
		}
	}
	return err
}
