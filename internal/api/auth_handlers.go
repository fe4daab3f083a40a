package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/register",
		Summary:     "Register new member",
		Description: "Creates a new member account and logs it in. A library card number is assigned automatically.",
		Tags:        []string{"Authentication"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Member login",
		Description: "Authenticates a member and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens. The old refresh token is invalidated.",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Revokes the session holding the given refresh token",
		Tags:        []string{"Authentication"},
	}, s.handleLogout)
}

// === DTOs ===

// RegisterRequest is the request body for member registration.
type RegisterRequest struct {
	Email                string `json:"email" validate:"required,email" doc:"Member email address"`
	Username             string `json:"username" validate:"required,min=3,max=150" doc:"Unique username"`
	Password             string `json:"password" validate:"required,min=8,max=1024" doc:"Member password"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required" doc:"Must match password"`
	FirstName            string `json:"first_name,omitempty" validate:"omitempty,max=150" doc:"First name"`
	LastName             string `json:"last_name,omitempty" validate:"omitempty,max=150" doc:"Last name"`
	PhoneNumber          string `json:"phone_number,omitempty" validate:"omitempty,e164" doc:"Phone number in E.164 format"`
	DateOfBirth          string `json:"date_of_birth,omitempty" validate:"omitempty" doc:"Date of birth (YYYY-MM-DD)"`
}

// RegisterInput wraps the register request with headers for Huma.
type RegisterInput struct {
	Body          RegisterRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
	UserAgent     string `header:"User-Agent"`
}

// LoginRequest is the request body for member login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" doc:"Member email"`
	Password string `json:"password" validate:"required" doc:"Member password"`
}

// LoginInput wraps the login request with headers for Huma.
type LoginInput struct {
	Body          LoginRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
	UserAgent     string `header:"User-Agent"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" doc:"Refresh token"`
}

// RefreshInput wraps the refresh request with headers for Huma.
type RefreshInput struct {
	Body          RefreshRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
	UserAgent     string `header:"User-Agent"`
}

// LogoutRequest is the request body for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" doc:"Refresh token of the session to revoke"`
}

// LogoutInput wraps the logout request for Huma.
type LogoutInput struct {
	Body LogoutRequest
}

// UserResponse contains member information in API responses.
// The password hash never leaves the service layer through this type.
type UserResponse struct {
	ID                string     `json:"id" doc:"User ID"`
	Email             string     `json:"email" doc:"Email address"`
	Username          string     `json:"username" doc:"Username"`
	FirstName         string     `json:"first_name,omitempty" doc:"First name"`
	LastName          string     `json:"last_name,omitempty" doc:"Last name"`
	PhoneNumber       string     `json:"phone_number,omitempty" doc:"Phone number"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty" doc:"Date of birth"`
	IsVerified        bool       `json:"is_verified" doc:"Whether the account is verified"`
	IsStaff           bool       `json:"is_staff" doc:"Whether the account has staff privileges"`
	LibraryCardNumber string     `json:"library_card_number" doc:"Printed library card number"`
	MaxBooksAllowed   int        `json:"max_books_allowed" doc:"Borrowing quota"`
	CreatedAt         time.Time  `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt         time.Time  `json:"updated_at" doc:"Last update timestamp"`
	LastLoginAt       time.Time  `json:"last_login_at" doc:"Last login timestamp"`
}

// AuthResponse contains authentication tokens and member info.
type AuthResponse struct {
	AccessToken  string       `json:"access_token" doc:"PASETO access token"`
	RefreshToken string       `json:"refresh_token" doc:"Refresh token"`
	SessionID    string       `json:"session_id" doc:"Session identifier"`
	TokenType    string       `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn    int          `json:"expires_in" doc:"Token expiry in seconds"`
	User         UserResponse `json:"user" doc:"Authenticated member"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// RegisterOutput wraps the auth response for a created account.
type RegisterOutput struct {
	Status int
	Body   AuthResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
	req := service.RegisterRequest{
		Email:                input.Body.Email,
		Username:             input.Body.Username,
		Password:             input.Body.Password,
		PasswordConfirmation: input.Body.PasswordConfirmation,
		FirstName:            input.Body.FirstName,
		LastName:             input.Body.LastName,
		PhoneNumber:          input.Body.PhoneNumber,
		DateOfBirth:          input.Body.DateOfBirth,
		IPAddress:            extractIP(input.XForwardedFor, input.XRealIP),
		UserAgent:            input.UserAgent,
	}

	resp, err := s.services.Auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	return &RegisterOutput{
		Status: http.StatusCreated,
		Body:   mapAuthResponse(resp),
	}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	req := service.LoginRequest{
		Email:     input.Body.Email,
		Password:  input.Body.Password,
		IPAddress: extractIP(input.XForwardedFor, input.XRealIP),
		UserAgent: input.UserAgent,
	}

	resp, err := s.services.Auth.Login(ctx, req)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(resp)}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	req := service.RefreshRequest{
		RefreshToken: input.Body.RefreshToken,
		IPAddress:    extractIP(input.XForwardedFor, input.XRealIP),
		UserAgent:    input.UserAgent,
	}

	resp, err := s.services.Auth.RefreshTokens(ctx, req)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(resp)}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *LogoutInput) (*MessageOutput, error) {
	req := service.LogoutRequest{RefreshToken: input.Body.RefreshToken}
	if err := s.services.Auth.Logout(ctx, req); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Logged out successfully"}}, nil
}

// === Helpers ===

func mapAuthResponse(resp *service.AuthResponse) AuthResponse {
	return AuthResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		SessionID:    resp.SessionID,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		User:         mapUserResponse(resp.User),
	}
}

func mapUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:                user.ID,
		Email:             user.Email,
		Username:          user.Username,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		PhoneNumber:       user.PhoneNumber,
		DateOfBirth:       user.DateOfBirth,
		IsVerified:        user.IsVerified,
		IsStaff:           user.IsStaff,
		LibraryCardNumber: user.LibraryCardNumber,
		MaxBooksAllowed:   user.MaxBooksAllowed,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
		LastLoginAt:       user.LastLoginAt,
	}
}
