// Package store defines the persistence interface for the Shelfwise server.
package store

import (
	"context"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// PopularBooksLimit caps the popular-books listing.
const PopularBooksLimit = 10

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Authors
	CreateAuthor(ctx context.Context, author *domain.Author) error
	GetAuthor(ctx context.Context, id string) (*domain.Author, error)
	UpdateAuthor(ctx context.Context, author *domain.Author) error
	DeleteAuthor(ctx context.Context, id string) error
	ListAuthors(ctx context.Context) ([]*domain.Author, error)

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*BookWithAuthor, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error
	ListBooks(ctx context.Context, filter BookFilter) ([]*BookWithAuthor, error)
	ListPopularBooks(ctx context.Context, filter BookFilter) ([]*PopularBook, error)

	// Loans. BorrowBook and CloseLoan update the loan and the book's
	// availability in a single transaction.
	BorrowBook(ctx context.Context, loan *domain.Loan) error
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	CloseLoan(ctx context.Context, loanID string, returnedAt time.Time) error
	ListLoans(ctx context.Context, filter LoanFilter) ([]*LoanDetail, error)
	GetActiveLoanForBook(ctx context.Context, bookID string) (*domain.Loan, error)
	CountActiveLoans(ctx context.Context, userID string) (int, error)
	HasActiveLoan(ctx context.Context, userID, bookID string) (bool, error)
	GetCurrentBorrower(ctx context.Context, bookID string) (*Borrower, error)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error

	// Auth Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteAllUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// BookWithAuthor is a book joined with its author's display name.
type BookWithAuthor struct {
	domain.Book
	AuthorName string `json:"author_name,omitempty"`
}

// PopularBook is a book ranked by how often it has been borrowed.
type PopularBook struct {
	BookWithAuthor
	LoanCount int `json:"loan_count"`
}

// Borrower identifies who currently holds a book.
type Borrower struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	BorrowedAt time.Time `json:"borrowed_at"`
}

// LoanDetail is a loan joined with book and user display fields for listings.
type LoanDetail struct {
	domain.Loan
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author,omitempty"`
	Username   string `json:"username"`
	UserEmail  string `json:"user_email"`
}

// BookFilter narrows book listings. Zero values mean "no constraint".
type BookFilter struct {
	Title             string // contains, case-insensitive
	AuthorName        string // contains, case-insensitive
	ISBN              string // exact digit-string match
	Language          domain.Language
	PublishYear       int
	PublishDateAfter  *time.Time
	PublishDateBefore *time.Time
	PageCountMin      int
	PageCountMax      int
	IsAvailable       *bool
	Search            string // title OR author name OR description
}

// LoanFilter narrows loan listings. Zero values mean "no constraint".
type LoanFilter struct {
	UserID         string // exact
	Username       string // contains, case-insensitive
	UserEmail      string // exact, case-insensitive
	BookTitle      string // contains, case-insensitive
	BookAuthor     string // contains, case-insensitive
	Status         domain.LoanStatus
	BorrowedAfter  *time.Time
	BorrowedBefore *time.Time
	ReturnedAfter  *time.Time
	ReturnedBefore *time.Time
}
