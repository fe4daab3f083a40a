package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns catalog books matching the given filters. Public.",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPopularBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/popular",
		Summary:     "List popular books",
		Description: "Returns the most-borrowed books ranked by lifetime loan count. Public.",
		Tags:        []string{"Books"},
	}, s.handleListPopularBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "createBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Create book",
		Description: "Adds a book to the catalog. Staff only.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID, including the current borrower when on loan. Public.",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Updates a book. Staff only.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Removes a book and its loan history. Staff only.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)
}

// === DTOs ===

// BookFilterInput contains catalog filter query parameters.
type BookFilterInput struct {
	Title             string `query:"title" doc:"Title contains, case-insensitive"`
	AuthorName        string `query:"author_name" doc:"Author name contains, case-insensitive"`
	ISBN              string `query:"isbn" doc:"Exact ISBN-13 match"`
	Language          string `query:"language" doc:"Language code (EN, FR, AR, ES, CZ, NL)"`
	PublishYear       int    `query:"publish_year" doc:"Published in this year"`
	PublishDateAfter  string `query:"publish_date_after" doc:"Published on or after (YYYY-MM-DD)"`
	PublishDateBefore string `query:"publish_date_before" doc:"Published on or before (YYYY-MM-DD)"`
	PageCountMin      int    `query:"page_count_min" doc:"Minimum page count"`
	PageCountMax      int    `query:"page_count_max" doc:"Maximum page count"`
	IsAvailable       *bool  `query:"is_available" doc:"Filter by shelf availability"`
	Search            string `query:"search" doc:"Matches title, author name, or description"`
}

func (input *BookFilterInput) toRequest() service.BookListRequest {
	return service.BookListRequest{
		Title:             input.Title,
		AuthorName:        input.AuthorName,
		ISBN:              input.ISBN,
		Language:          input.Language,
		PublishYear:       input.PublishYear,
		PublishDateAfter:  input.PublishDateAfter,
		PublishDateBefore: input.PublishDateBefore,
		PageCountMin:      input.PageCountMin,
		PageCountMax:      input.PageCountMax,
		IsAvailable:       input.IsAvailable,
		Search:            input.Search,
	}
}

// BookListOutput wraps a book listing for Huma.
type BookListOutput struct {
	Body []*store.BookWithAuthor
}

// PopularBookListOutput wraps the popular-books listing for Huma.
type PopularBookListOutput struct {
	Body []*store.PopularBook
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *service.BookDetail
}

// BookCreatedOutput wraps a newly created book.
type BookCreatedOutput struct {
	Status int
	Body   *service.BookDetail
}

// CreateBookRequest is the request body for book creation.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=300" doc:"Book title"`
	AuthorID    string `json:"author_id,omitempty" doc:"Author ID, may be empty"`
	Description string `json:"description,omitempty" doc:"Book description"`
	ISBN        string `json:"isbn" validate:"required" doc:"ISBN-13, digits only"`
	PublishDate string `json:"publish_date" validate:"required" doc:"Publish date (YYYY-MM-DD)"`
	PageCount   int    `json:"page_count" validate:"required" doc:"Page count"`
	Language    string `json:"language" validate:"required" doc:"Language code (EN, FR, AR, ES, CZ, NL)"`
}

// CreateBookInput wraps the book creation request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// BookIDInput identifies a book by path parameter.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookRequest is the request body for book updates.
// Omitted fields are left unchanged; an empty author_id detaches the author.
type UpdateBookRequest struct {
	Title       *string `json:"title,omitempty" doc:"Book title"`
	AuthorID    *string `json:"author_id,omitempty" doc:"Author ID, empty string detaches"`
	Description *string `json:"description,omitempty" doc:"Book description"`
	ISBN        *string `json:"isbn,omitempty" doc:"ISBN-13, digits only"`
	PublishDate *string `json:"publish_date,omitempty" doc:"Publish date (YYYY-MM-DD)"`
	PageCount   *int    `json:"page_count,omitempty" doc:"Page count"`
	Language    *string `json:"language,omitempty" doc:"Language code"`
}

// UpdateBookInput wraps the book update request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body UpdateBookRequest
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *BookFilterInput) (*BookListOutput, error) {
	books, err := s.services.Book.ListBooks(ctx, input.toRequest())
	if err != nil {
		return nil, err
	}

	return &BookListOutput{Body: books}, nil
}

func (s *Server) handleListPopularBooks(ctx context.Context, input *BookFilterInput) (*PopularBookListOutput, error) {
	books, err := s.services.Book.ListPopularBooks(ctx, input.toRequest())
	if err != nil {
		return nil, err
	}

	return &PopularBookListOutput{Body: books}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookCreatedOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	req := service.CreateBookRequest{
		Title:       input.Body.Title,
		AuthorID:    input.Body.AuthorID,
		Description: input.Body.Description,
		ISBN:        input.Body.ISBN,
		PublishDate: input.Body.PublishDate,
		PageCount:   input.Body.PageCount,
		Language:    input.Body.Language,
	}

	book, err := s.services.Book.CreateBook(ctx, req)
	if err != nil {
		return nil, err
	}

	return &BookCreatedOutput{
		Status: http.StatusCreated,
		Body:   book,
	}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	req := service.UpdateBookRequest{
		Title:       input.Body.Title,
		AuthorID:    input.Body.AuthorID,
		Description: input.Body.Description,
		ISBN:        input.Body.ISBN,
		PublishDate: input.Body.PublishDate,
		PageCount:   input.Body.PageCount,
		Language:    input.Body.Language,
	}

	book, err := s.services.Book.UpdateBook(ctx, input.ID, req)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*MessageOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Book.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}
