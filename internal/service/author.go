package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// AuthorService manages the author side of the catalog.
type AuthorService struct {
	store  store.Store
	logger *slog.Logger
}

// NewAuthorService creates a new author service.
func NewAuthorService(store store.Store, logger *slog.Logger) *AuthorService {
	return &AuthorService{
		store:  store,
		logger: logger,
	}
}

// AuthorResponse is an author plus their derived age.
// Age is years lived so far, or years lived at death; nil when the
// date of birth is unknown.
type AuthorResponse struct {
	domain.Author
	Age *int `json:"age,omitempty"`
}

func newAuthorResponse(author *domain.Author) *AuthorResponse {
	return &AuthorResponse{
		Author: *author,
		Age:    author.Age(time.Now()),
	}
}

// CreateAuthorRequest contains new author data.
type CreateAuthorRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Nationality string `json:"nationality" validate:"omitempty,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	DateOfDeath string `json:"date_of_death" validate:"omitempty,datetime=2006-01-02"`
}

// CreateAuthor adds an author to the catalog.
func (s *AuthorService) CreateAuthor(ctx context.Context, req CreateAuthorRequest) (*AuthorResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	dateOfBirth, err := parseOptionalDate(req.DateOfBirth, "date_of_birth")
	if err != nil {
		return nil, err
	}
	dateOfDeath, err := parseOptionalDate(req.DateOfDeath, "date_of_death")
	if err != nil {
		return nil, err
	}

	authorID, err := id.Generate("author")
	if err != nil {
		return nil, fmt.Errorf("generate author ID: %w", err)
	}

	author := &domain.Author{
		Record: domain.Record{
			ID: authorID,
		},
		Name:        req.Name,
		Nationality: req.Nationality,
		DateOfBirth: dateOfBirth,
		DateOfDeath: dateOfDeath,
	}
	if err := author.ValidateDates(time.Now()); err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	author.InitTimestamps()

	if err := s.store.CreateAuthor(ctx, author); err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Author created", "author_id", authorID, "name", author.Name)
	}

	return newAuthorResponse(author), nil
}

// GetAuthor returns a single author.
func (s *AuthorService) GetAuthor(ctx context.Context, authorID string) (*AuthorResponse, error) {
	author, err := s.store.GetAuthor(ctx, authorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("author not found")
		}
		return nil, fmt.Errorf("get author: %w", err)
	}
	return newAuthorResponse(author), nil
}

// ListAuthors returns all authors ordered by name.
func (s *AuthorService) ListAuthors(ctx context.Context) ([]*AuthorResponse, error) {
	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	responses := make([]*AuthorResponse, 0, len(authors))
	for _, author := range authors {
		responses = append(responses, newAuthorResponse(author))
	}
	return responses, nil
}

// UpdateAuthorRequest contains optional author fields to update.
type UpdateAuthorRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Nationality *string `json:"nationality" validate:"omitempty,max=100"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	DateOfDeath *string `json:"date_of_death" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateAuthor applies the provided fields to an author.
// Nil fields are left untouched; empty date strings clear the date.
func (s *AuthorService) UpdateAuthor(ctx context.Context, authorID string, req UpdateAuthorRequest) (*AuthorResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	author, err := s.store.GetAuthor(ctx, authorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("author not found")
		}
		return nil, fmt.Errorf("get author: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, domainerrors.Validation("name is required")
		}
		author.Name = *req.Name
	}
	if req.Nationality != nil {
		author.Nationality = *req.Nationality
	}
	if req.DateOfBirth != nil {
		author.DateOfBirth, err = parseOptionalDate(*req.DateOfBirth, "date_of_birth")
		if err != nil {
			return nil, err
		}
	}
	if req.DateOfDeath != nil {
		author.DateOfDeath, err = parseOptionalDate(*req.DateOfDeath, "date_of_death")
		if err != nil {
			return nil, err
		}
	}

	if err := author.ValidateDates(time.Now()); err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	author.Touch()
	if err := s.store.UpdateAuthor(ctx, author); err != nil {
		return nil, fmt.Errorf("update author: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Author updated", "author_id", authorID)
	}

	return newAuthorResponse(author), nil
}

// DeleteAuthor removes an author. Their books remain, unattributed.
func (s *AuthorService) DeleteAuthor(ctx context.Context, authorID string) error {
	if err := s.store.DeleteAuthor(ctx, authorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("author not found")
		}
		return fmt.Errorf("delete author: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Author deleted", "author_id", authorID)
	}

	return nil
}
