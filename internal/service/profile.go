package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// ProfileService provides member profile management.
type ProfileService struct {
	store    store.Store
	sessions *SessionService
	logger   *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(
	store store.Store,
	sessions *SessionService,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		store:    store,
		sessions: sessions,
		logger:   logger,
	}
}

// GetProfile returns a user's account, including loan usage counters.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*ProfileResponse, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	activeLoans, err := s.store.CountActiveLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}

	return &ProfileResponse{
		User:        user,
		ActiveLoans: activeLoans,
	}, nil
}

// ProfileResponse is an account plus its current borrowing usage.
type ProfileResponse struct {
	User        *domain.User `json:"user"`
	ActiveLoans int          `json:"active_loans"`
}

// UpdateProfileRequest contains optional profile fields to update.
// Identity fields (email, username, library card) are read-only.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name" validate:"omitempty,max=150"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,e164"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateProfile applies the provided fields to a user's account.
// Nil fields are left untouched.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*ProfileResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			user.DateOfBirth = nil
		} else {
			dateOfBirth, err := parseOptionalDate(*req.DateOfBirth, "date_of_birth")
			if err != nil {
				return nil, err
			}
			if dateOfBirth.After(time.Now()) {
				return nil, domainerrors.Validation("date_of_birth cannot be in the future")
			}
			user.DateOfBirth = dateOfBirth
		}
	}

	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Profile updated", "user_id", userID)
	}

	activeLoans, err := s.store.CountActiveLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}

	return &ProfileResponse{
		User:        user,
		ActiveLoans: activeLoans,
	}, nil
}

// ChangePasswordRequest carries a password change.
type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=8,max=1024"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every session the user holds. Clients must log in again.
func (s *ProfileService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return domainerrors.Validation("current_password is incorrect")
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = newHash
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.sessions.DeleteAllUserSessions(ctx, userID); err != nil {
		if s.logger != nil {
			s.logger.Warn("Failed to revoke sessions after password change",
				"user_id", userID,
				"error", err,
			)
		}
	}

	if s.logger != nil {
		s.logger.Info("Password changed", "user_id", userID)
	}

	return nil
}
