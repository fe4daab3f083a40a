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

// BookService manages the book side of the catalog.
type BookService struct {
	store  store.Store
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store store.Store, logger *slog.Logger) *BookService {
	return &BookService{
		store:  store,
		logger: logger,
	}
}

// BookDetail is a book plus who currently holds it, when on loan.
type BookDetail struct {
	store.BookWithAuthor
	CurrentBorrower *store.Borrower `json:"current_borrower,omitempty"`
}

// CreateBookRequest contains new book data.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	AuthorID    string `json:"author_id" validate:"omitempty"`
	Description string `json:"description" validate:"omitempty"`
	ISBN        string `json:"isbn" validate:"required,isbn_digits"`
	PublishDate string `json:"publish_date" validate:"required,datetime=2006-01-02"`
	PageCount   int    `json:"page_count" validate:"required,gt=0"`
	Language    string `json:"language" validate:"required,oneof=EN FR AR ES CZ NL"`
}

// CreateBook adds a book to the catalog. New books start available.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*BookDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	publishDate, err := time.Parse(dateLayout, req.PublishDate)
	if err != nil {
		return nil, domainerrors.Validation("publish_date must be a date in YYYY-MM-DD format")
	}
	if publishDate.After(time.Now()) {
		return nil, domainerrors.Validation("publish_date cannot be in the future")
	}

	authorName := ""
	if req.AuthorID != "" {
		author, err := s.store.GetAuthor(ctx, req.AuthorID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domainerrors.Validation("author_id does not reference an existing author")
			}
			return nil, fmt.Errorf("get author: %w", err)
		}
		authorName = author.Name
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Record: domain.Record{
			ID: bookID,
		},
		Title:       req.Title,
		AuthorID:    req.AuthorID,
		Description: req.Description,
		ISBN:        req.ISBN,
		PublishDate: publishDate,
		PageCount:   req.PageCount,
		Language:    domain.Language(req.Language),
		IsAvailable: true,
	}
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("a book with this title, author and publish date already exists")
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Book created", "book_id", bookID, "title", book.Title)
	}

	return &BookDetail{
		BookWithAuthor: store.BookWithAuthor{
			Book:       *book,
			AuthorName: authorName,
		},
	}, nil
}

// GetBook returns a single book, including the current borrower when the
// book is on loan.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*BookDetail, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	detail := &BookDetail{BookWithAuthor: *book}

	if !book.IsAvailable {
		borrower, err := s.store.GetCurrentBorrower(ctx, bookID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get current borrower: %w", err)
		}
		detail.CurrentBorrower = borrower
	}

	return detail, nil
}

// BookListRequest narrows book listings. All fields are optional.
type BookListRequest struct {
	Title             string `json:"title"`
	AuthorName        string `json:"author_name"`
	ISBN              string `json:"isbn" validate:"omitempty,numeric"`
	Language          string `json:"language" validate:"omitempty,oneof=EN FR AR ES CZ NL"`
	PublishYear       int    `json:"publish_year" validate:"omitempty,gt=0"`
	PublishDateAfter  string `json:"publish_date_after" validate:"omitempty,datetime=2006-01-02"`
	PublishDateBefore string `json:"publish_date_before" validate:"omitempty,datetime=2006-01-02"`
	PageCountMin      int    `json:"page_count_min" validate:"omitempty,gt=0"`
	PageCountMax      int    `json:"page_count_max" validate:"omitempty,gt=0"`
	IsAvailable       *bool  `json:"is_available"`
	Search            string `json:"search"`
}

func (req BookListRequest) filter() (store.BookFilter, error) {
	after, err := parseOptionalDate(req.PublishDateAfter, "publish_date_after")
	if err != nil {
		return store.BookFilter{}, err
	}
	before, err := parseOptionalDate(req.PublishDateBefore, "publish_date_before")
	if err != nil {
		return store.BookFilter{}, err
	}

	return store.BookFilter{
		Title:             req.Title,
		AuthorName:        req.AuthorName,
		ISBN:              req.ISBN,
		Language:          domain.Language(req.Language),
		PublishYear:       req.PublishYear,
		PublishDateAfter:  after,
		PublishDateBefore: before,
		PageCountMin:      req.PageCountMin,
		PageCountMax:      req.PageCountMax,
		IsAvailable:       req.IsAvailable,
		Search:            req.Search,
	}, nil
}

// ListBooks returns books matching the filters, most recently published
// first.
func (s *BookService) ListBooks(ctx context.Context, req BookListRequest) ([]*store.BookWithAuthor, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	filter, err := req.filter()
	if err != nil {
		return nil, err
	}

	books, err := s.store.ListBooks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// ListPopularBooks returns the most-borrowed books, ranked by lifetime
// loan count. Books never borrowed are excluded.
func (s *BookService) ListPopularBooks(ctx context.Context, req BookListRequest) ([]*store.PopularBook, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	filter, err := req.filter()
	if err != nil {
		return nil, err
	}

	books, err := s.store.ListPopularBooks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list popular books: %w", err)
	}
	return books, nil
}

// UpdateBookRequest contains optional book fields to update.
type UpdateBookRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=300"`
	AuthorID    *string `json:"author_id"`
	Description *string `json:"description"`
	ISBN        *string `json:"isbn" validate:"omitempty,isbn_digits"`
	PublishDate *string `json:"publish_date" validate:"omitempty,datetime=2006-01-02"`
	PageCount   *int    `json:"page_count" validate:"omitempty,gt=0"`
	Language    *string `json:"language" validate:"omitempty,oneof=EN FR AR ES CZ NL"`
}

// UpdateBook applies the provided fields to a book. Nil fields are left
// untouched; an empty author_id detaches the author.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*BookDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	existing, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	book := existing.Book
	if req.Title != nil {
		if *req.Title == "" {
			return nil, domainerrors.Validation("title is required")
		}
		book.Title = *req.Title
	}
	if req.AuthorID != nil {
		if *req.AuthorID != "" {
			if _, err := s.store.GetAuthor(ctx, *req.AuthorID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, domainerrors.Validation("author_id does not reference an existing author")
				}
				return nil, fmt.Errorf("get author: %w", err)
			}
		}
		book.AuthorID = *req.AuthorID
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.ISBN != nil {
		book.ISBN = *req.ISBN
	}
	if req.PublishDate != nil {
		publishDate, err := time.Parse(dateLayout, *req.PublishDate)
		if err != nil {
			return nil, domainerrors.Validation("publish_date must be a date in YYYY-MM-DD format")
		}
		if publishDate.After(time.Now()) {
			return nil, domainerrors.Validation("publish_date cannot be in the future")
		}
		book.PublishDate = publishDate
	}
	if req.PageCount != nil {
		book.PageCount = *req.PageCount
	}
	if req.Language != nil {
		book.Language = domain.Language(*req.Language)
	}

	book.Touch()
	if err := s.store.UpdateBook(ctx, &book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("a book with this title, author and publish date already exists")
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Book updated", "book_id", bookID)
	}

	return s.GetBook(ctx, bookID)
}

// DeleteBook removes a book and its loan history.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("book not found")
		}
		return fmt.Errorf("delete book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Book deleted", "book_id", bookID)
	}

	return nil
}
