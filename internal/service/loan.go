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

// Messages for loan precondition failures. Clients match on these
// strings, so they are part of the API contract.
const (
	msgBookNotFound    = "Book with this ID does not exist."
	msgBookBorrowed    = "This book is currently borrowed by another user."
	msgQuotaReached    = "You have reached your maximum book borrowing limit."
	msgAlreadyBorrowed = "You have already borrowed this book."
	msgLoanNotFound    = "Loan with this ID does not exist."
	msgAlreadyReturned = "This book has already been returned."
	msgNotLoanOwner    = "You can only return your own borrowed books."
)

// LoanService runs the borrow/return workflow.
type LoanService struct {
	store  store.Store
	logger *slog.Logger
}

// NewLoanService creates a new loan service.
func NewLoanService(store store.Store, logger *slog.Logger) *LoanService {
	return &LoanService{
		store:  store,
		logger: logger,
	}
}

// fieldError builds a validation error keyed by the offending field,
// mirroring the field-keyed bodies the loan endpoints return.
func fieldError(field, msg string) *domainerrors.Error {
	return domainerrors.ValidationWithDetails(msg, map[string][]string{field: {msg}})
}

// BorrowRequest identifies the book to borrow.
type BorrowRequest struct {
	BookID string `json:"book_id" validate:"required"`
}

// ReturnRequest identifies the loan to close.
type ReturnRequest struct {
	LoanID string `json:"loan_id" validate:"required"`
}

// Borrow lends a book to a user. Preconditions are checked in a fixed
// order: the book exists, the book is not on loan, the user is under
// quota, and the user does not already hold this book. The loan insert
// and availability flip happen in one transaction, and the store
// re-checks the single-active-loan invariant inside it, so a concurrent
// borrow of the same book cannot slip through.
func (s *LoanService) Borrow(ctx context.Context, userID string, req BorrowRequest) (*domain.Loan, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book, err := s.store.GetBook(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fieldError("book_id", msgBookNotFound)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	// A borrowed book is rejected regardless of who holds it.
	if !book.IsAvailable {
		return nil, fieldError("book_id", msgBookBorrowed)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	activeLoans, err := s.store.CountActiveLoans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}
	if !user.CanBorrow(activeLoans) {
		return nil, domainerrors.QuotaExceeded(msgQuotaReached).
			WithDetails(map[string][]string{"user": {msgQuotaReached}})
	}

	// Guards against an availability flag out of step with the loans
	// table; the flag check above already covers the common case.
	alreadyHolds, err := s.store.HasActiveLoan(ctx, userID, req.BookID)
	if err != nil {
		return nil, fmt.Errorf("check active loan: %w", err)
	}
	if alreadyHolds {
		return nil, fieldError("book_id", msgAlreadyBorrowed)
	}

	loanID, err := id.Generate("loan")
	if err != nil {
		return nil, fmt.Errorf("generate loan ID: %w", err)
	}

	loan := &domain.Loan{
		Record: domain.Record{
			ID: loanID,
		},
		UserID:     userID,
		BookID:     req.BookID,
		BorrowedAt: time.Now(),
	}
	loan.InitTimestamps()

	if err := s.store.BorrowBook(ctx, loan); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the race to another borrower.
			return nil, fieldError("book_id", msgBookBorrowed)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fieldError("book_id", msgBookNotFound)
		}
		return nil, fmt.Errorf("borrow book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Book borrowed",
			"loan_id", loanID,
			"book_id", req.BookID,
			"user_id", userID,
		)
	}

	return loan, nil
}

// Return closes a loan. Only the loan's owner or a staff member may
// return it. The return date and availability flip happen in one
// transaction; a loan already closed stays closed.
func (s *LoanService) Return(ctx context.Context, actorID string, actorIsStaff bool, req ReturnRequest) (*domain.Loan, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	loan, err := s.store.GetLoan(ctx, req.LoanID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fieldError("loan_id", msgLoanNotFound)
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}

	if !loan.IsActive() {
		return nil, fieldError("loan_id", msgAlreadyReturned)
	}

	if loan.UserID != actorID && !actorIsStaff {
		return nil, domainerrors.Forbidden(msgNotLoanOwner)
	}

	// Returns are recorded by calendar day, not clock time.
	now := time.Now().UTC()
	returnedAt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.store.CloseLoan(ctx, req.LoanID, returnedAt); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Closed between our read and the update.
			return nil, fieldError("loan_id", msgAlreadyReturned)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fieldError("loan_id", msgLoanNotFound)
		}
		return nil, fmt.Errorf("close loan: %w", err)
	}

	loan.MarkReturned(returnedAt)

	if s.logger != nil {
		s.logger.Info("Book returned",
			"loan_id", loan.ID,
			"book_id", loan.BookID,
			"user_id", loan.UserID,
		)
	}

	return loan, nil
}

// LoanListRequest narrows loan listings. All fields are optional.
type LoanListRequest struct {
	Status         string `json:"status" validate:"omitempty,oneof=active returned"`
	BookTitle      string `json:"book_title"`
	BookAuthor     string `json:"book_author"`
	Username       string `json:"user"`
	UserEmail      string `json:"user_email" validate:"omitempty,email"`
	BorrowedAfter  string `json:"borrowed_after" validate:"omitempty,datetime=2006-01-02"`
	BorrowedBefore string `json:"borrowed_before" validate:"omitempty,datetime=2006-01-02"`
	ReturnedAfter  string `json:"returned_after" validate:"omitempty,datetime=2006-01-02"`
	ReturnedBefore string `json:"returned_before" validate:"omitempty,datetime=2006-01-02"`
}

func (req LoanListRequest) filter() (store.LoanFilter, error) {
	borrowedAfter, err := parseOptionalDate(req.BorrowedAfter, "borrowed_after")
	if err != nil {
		return store.LoanFilter{}, err
	}
	borrowedBefore, err := parseOptionalDate(req.BorrowedBefore, "borrowed_before")
	if err != nil {
		return store.LoanFilter{}, err
	}
	returnedAfter, err := parseOptionalDate(req.ReturnedAfter, "returned_after")
	if err != nil {
		return store.LoanFilter{}, err
	}
	returnedBefore, err := parseOptionalDate(req.ReturnedBefore, "returned_before")
	if err != nil {
		return store.LoanFilter{}, err
	}

	return store.LoanFilter{
		Username:       req.Username,
		UserEmail:      req.UserEmail,
		BookTitle:      req.BookTitle,
		BookAuthor:     req.BookAuthor,
		Status:         domain.LoanStatus(req.Status),
		BorrowedAfter:  borrowedAfter,
		BorrowedBefore: borrowedBefore,
		ReturnedAfter:  returnedAfter,
		ReturnedBefore: returnedBefore,
	}, nil
}

// ListUserLoans returns one user's loans matching the filters, most
// recently borrowed first.
func (s *LoanService) ListUserLoans(ctx context.Context, userID string, req LoanListRequest) ([]*store.LoanDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	filter, err := req.filter()
	if err != nil {
		return nil, err
	}
	filter.UserID = userID

	loans, err := s.store.ListLoans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// ListAllLoans returns every loan matching the filters, for staff views.
func (s *LoanService) ListAllLoans(ctx context.Context, req LoanListRequest) ([]*store.LoanDetail, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	filter, err := req.filter()
	if err != nil {
		return nil, err
	}

	loans, err := s.store.ListLoans(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// ListLoansForUser returns another user's loans, for staff views.
// The target user must exist.
func (s *LoanService) ListLoansForUser(ctx context.Context, userID string, req LoanListRequest) ([]*store.LoanDetail, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return s.ListUserLoans(ctx, userID, req)
}
