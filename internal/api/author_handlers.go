package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerAuthorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAuthors",
		Method:      http.MethodGet,
		Path:        "/api/v1/authors",
		Summary:     "List authors",
		Description: "Returns all authors ordered by name. Staff only.",
		Tags:        []string{"Authors"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListAuthors)

	huma.Register(s.api, huma.Operation{
		OperationID: "createAuthor",
		Method:      http.MethodPost,
		Path:        "/api/v1/authors",
		Summary:     "Create author",
		Description: "Creates a new author. Staff only.",
		Tags:        []string{"Authors"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateAuthor)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAuthor",
		Method:      http.MethodGet,
		Path:        "/api/v1/authors/{id}",
		Summary:     "Get author",
		Description: "Returns an author by ID. Staff only.",
		Tags:        []string{"Authors"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetAuthor)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateAuthor",
		Method:      http.MethodPatch,
		Path:        "/api/v1/authors/{id}",
		Summary:     "Update author",
		Description: "Updates an author. Staff only.",
		Tags:        []string{"Authors"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateAuthor)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteAuthor",
		Method:      http.MethodDelete,
		Path:        "/api/v1/authors/{id}",
		Summary:     "Delete author",
		Description: "Deletes an author. Their books remain, unattributed. Staff only.",
		Tags:        []string{"Authors"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteAuthor)
}

// === DTOs ===

// AuthorOutput wraps a single author for Huma.
type AuthorOutput struct {
	Body *service.AuthorResponse
}

// AuthorCreatedOutput wraps a newly created author.
type AuthorCreatedOutput struct {
	Status int
	Body   *service.AuthorResponse
}

// AuthorListOutput wraps an author listing for Huma.
type AuthorListOutput struct {
	Body []*service.AuthorResponse
}

// CreateAuthorRequest is the request body for author creation.
type CreateAuthorRequest struct {
	Name        string `json:"name" validate:"required,max=200" doc:"Author name"`
	Nationality string `json:"nationality,omitempty" validate:"omitempty,max=100" doc:"Nationality"`
	DateOfBirth string `json:"date_of_birth,omitempty" doc:"Date of birth (YYYY-MM-DD)"`
	DateOfDeath string `json:"date_of_death,omitempty" doc:"Date of death (YYYY-MM-DD)"`
}

// CreateAuthorInput wraps the author creation request for Huma.
type CreateAuthorInput struct {
	Body CreateAuthorRequest
}

// AuthorIDInput identifies an author by path parameter.
type AuthorIDInput struct {
	ID string `path:"id" doc:"Author ID"`
}

// UpdateAuthorRequest is the request body for author updates.
// Omitted fields are left unchanged; empty date strings clear the date.
type UpdateAuthorRequest struct {
	Name        *string `json:"name,omitempty" doc:"Author name"`
	Nationality *string `json:"nationality,omitempty" doc:"Nationality"`
	DateOfBirth *string `json:"date_of_birth,omitempty" doc:"Date of birth (YYYY-MM-DD)"`
	DateOfDeath *string `json:"date_of_death,omitempty" doc:"Date of death (YYYY-MM-DD)"`
}

// UpdateAuthorInput wraps the author update request for Huma.
type UpdateAuthorInput struct {
	ID   string `path:"id" doc:"Author ID"`
	Body UpdateAuthorRequest
}

// === Handlers ===

func (s *Server) handleListAuthors(ctx context.Context, _ *struct{}) (*AuthorListOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	authors, err := s.services.Author.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}

	return &AuthorListOutput{Body: authors}, nil
}

func (s *Server) handleCreateAuthor(ctx context.Context, input *CreateAuthorInput) (*AuthorCreatedOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	req := service.CreateAuthorRequest{
		Name:        input.Body.Name,
		Nationality: input.Body.Nationality,
		DateOfBirth: input.Body.DateOfBirth,
		DateOfDeath: input.Body.DateOfDeath,
	}

	author, err := s.services.Author.CreateAuthor(ctx, req)
	if err != nil {
		return nil, err
	}

	return &AuthorCreatedOutput{
		Status: http.StatusCreated,
		Body:   author,
	}, nil
}

func (s *Server) handleGetAuthor(ctx context.Context, input *AuthorIDInput) (*AuthorOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	author, err := s.services.Author.GetAuthor(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &AuthorOutput{Body: author}, nil
}

func (s *Server) handleUpdateAuthor(ctx context.Context, input *UpdateAuthorInput) (*AuthorOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	req := service.UpdateAuthorRequest{
		Name:        input.Body.Name,
		Nationality: input.Body.Nationality,
		DateOfBirth: input.Body.DateOfBirth,
		DateOfDeath: input.Body.DateOfDeath,
	}

	author, err := s.services.Author.UpdateAuthor(ctx, input.ID, req)
	if err != nil {
		return nil, err
	}

	return &AuthorOutput{Body: author}, nil
}

func (s *Server) handleDeleteAuthor(ctx context.Context, input *AuthorIDInput) (*MessageOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Author.DeleteAuthor(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Author deleted"}}, nil
}
