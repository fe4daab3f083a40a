package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/profile",
		Summary:     "Get my profile",
		Description: "Returns the authenticated member's profile and current borrowing usage",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/auth/profile",
		Summary:     "Update my profile",
		Description: "Updates the authenticated member's contact details. Identity fields are read-only.",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "changePassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/change-password",
		Summary:     "Change password",
		Description: "Changes the authenticated member's password and revokes all sessions",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleChangePassword)
}

// === DTOs ===

// ProfileResponse contains profile data in API responses.
type ProfileResponse struct {
	User        UserResponse `json:"user" doc:"Member account"`
	ActiveLoans int          `json:"active_loans" doc:"Number of books currently borrowed"`
}

// ProfileOutput wraps the profile response for Huma.
type ProfileOutput struct {
	Body ProfileResponse
}

// UpdateProfileRequest is the request body for profile updates.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name,omitempty" doc:"First name"`
	LastName    *string `json:"last_name,omitempty" doc:"Last name"`
	PhoneNumber *string `json:"phone_number,omitempty" doc:"Phone number in E.164 format"`
	DateOfBirth *string `json:"date_of_birth,omitempty" doc:"Date of birth (YYYY-MM-DD), empty string clears"`
}

// UpdateProfileInput wraps the profile update request for Huma.
type UpdateProfileInput struct {
	Body UpdateProfileRequest
}

// ChangePasswordRequest is the request body for password changes.
type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required" doc:"Current password"`
	NewPassword             string `json:"new_password" validate:"required,min=8,max=1024" doc:"New password"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required" doc:"Must match new password"`
}

// ChangePasswordInput wraps the password change request for Huma.
type ChangePasswordInput struct {
	Body ChangePasswordRequest
}

// === Handlers ===

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.services.Profile.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{Body: mapProfileResponse(resp)}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	req := service.UpdateProfileRequest{
		FirstName:   input.Body.FirstName,
		LastName:    input.Body.LastName,
		PhoneNumber: input.Body.PhoneNumber,
		DateOfBirth: input.Body.DateOfBirth,
	}

	resp, err := s.services.Profile.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{Body: mapProfileResponse(resp)}, nil
}

func (s *Server) handleChangePassword(ctx context.Context, input *ChangePasswordInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	req := service.ChangePasswordRequest{
		CurrentPassword:         input.Body.CurrentPassword,
		NewPassword:             input.Body.NewPassword,
		NewPasswordConfirmation: input.Body.NewPasswordConfirmation,
	}

	if err := s.services.Profile.ChangePassword(ctx, userID, req); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Password changed. Please log in again."}}, nil
}

func mapProfileResponse(resp *service.ProfileResponse) ProfileResponse {
	return ProfileResponse{
		User:        mapUserResponse(resp.User),
		ActiveLoans: resp.ActiveLoans,
	}
}
