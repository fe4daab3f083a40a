package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func (s *Server) registerLoanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "borrowBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/borrow",
		Summary:     "Borrow a book",
		Description: "Checks out an available book to the authenticated member",
		Tags:        []string{"Loans"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleBorrowBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/return",
		Summary:     "Return a book",
		Description: "Closes an active loan. Members may only return their own loans; staff may return any.",
		Tags:        []string{"Loans"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReturnBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyBorrows",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/borrows",
		Summary:     "List my borrows",
		Description: "Returns the authenticated member's loans, most recent first",
		Tags:        []string{"Loans"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMyBorrows)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAllBorrows",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/all-borrows",
		Summary:     "List all borrows",
		Description: "Returns loans across all members. Staff only.",
		Tags:        []string{"Loans"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListAllBorrows)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserBorrows",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/{userID}/user-borrows",
		Summary:     "List a member's borrows",
		Description: "Returns one member's loans. Staff only.",
		Tags:        []string{"Loans"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserBorrows)
}

// === DTOs ===

// BorrowRequest is the request body for borrowing a book.
type BorrowRequest struct {
	BookID string `json:"book_id" validate:"required" doc:"Book to borrow"`
}

// BorrowInput wraps the borrow request for Huma.
type BorrowInput struct {
	Body BorrowRequest
}

// ReturnRequest is the request body for returning a book.
type ReturnRequest struct {
	LoanID string `json:"loan_id" validate:"required" doc:"Loan to close"`
}

// ReturnInput wraps the return request for Huma.
type ReturnInput struct {
	Body ReturnRequest
}

// LoanOutput wraps a single loan for Huma.
type LoanOutput struct {
	Body *domain.Loan
}

// LoanCreatedOutput wraps a newly created loan.
type LoanCreatedOutput struct {
	Status int
	Body   *domain.Loan
}

// LoanFilterInput contains loan listing query parameters.
type LoanFilterInput struct {
	Status         string `query:"status" doc:"Loan status (active, returned)"`
	BookTitle      string `query:"book_title" doc:"Book title contains, case-insensitive"`
	BookAuthor     string `query:"book_author" doc:"Author name contains, case-insensitive"`
	Username       string `query:"user" doc:"Username contains, case-insensitive"`
	UserEmail      string `query:"user_email" doc:"Exact email match, case-insensitive"`
	BorrowedAfter  string `query:"borrowed_after" doc:"Borrowed on or after (YYYY-MM-DD)"`
	BorrowedBefore string `query:"borrowed_before" doc:"Borrowed on or before (YYYY-MM-DD)"`
	ReturnedAfter  string `query:"returned_after" doc:"Returned on or after (YYYY-MM-DD)"`
	ReturnedBefore string `query:"returned_before" doc:"Returned on or before (YYYY-MM-DD)"`
}

func (input *LoanFilterInput) toRequest() service.LoanListRequest {
	return service.LoanListRequest{
		Status:         input.Status,
		BookTitle:      input.BookTitle,
		BookAuthor:     input.BookAuthor,
		Username:       input.Username,
		UserEmail:      input.UserEmail,
		BorrowedAfter:  input.BorrowedAfter,
		BorrowedBefore: input.BorrowedBefore,
		ReturnedAfter:  input.ReturnedAfter,
		ReturnedBefore: input.ReturnedBefore,
	}
}

// UserLoanFilterInput adds the member path parameter to loan filters.
type UserLoanFilterInput struct {
	UserID string `path:"userID" doc:"Member whose loans to list"`
	LoanFilterInput
}

// LoanListOutput wraps a loan listing for Huma.
type LoanListOutput struct {
	Body []*store.LoanDetail
}

// === Handlers ===

func (s *Server) handleBorrowBook(ctx context.Context, input *BorrowInput) (*LoanCreatedOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	loan, err := s.services.Loan.Borrow(ctx, userID, service.BorrowRequest{BookID: input.Body.BookID})
	if err != nil {
		return nil, err
	}

	return &LoanCreatedOutput{
		Status: http.StatusCreated,
		Body:   loan,
	}, nil
}

func (s *Server) handleReturnBook(ctx context.Context, input *ReturnInput) (*LoanOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	loan, err := s.services.Loan.Return(ctx, userID, isStaff(ctx), service.ReturnRequest{LoanID: input.Body.LoanID})
	if err != nil {
		return nil, err
	}

	return &LoanOutput{Body: loan}, nil
}

func (s *Server) handleListMyBorrows(ctx context.Context, input *LoanFilterInput) (*LoanListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	loans, err := s.services.Loan.ListUserLoans(ctx, userID, input.toRequest())
	if err != nil {
		return nil, err
	}

	return &LoanListOutput{Body: loans}, nil
}

func (s *Server) handleListAllBorrows(ctx context.Context, input *LoanFilterInput) (*LoanListOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	loans, err := s.services.Loan.ListAllLoans(ctx, input.toRequest())
	if err != nil {
		return nil, err
	}

	return &LoanListOutput{Body: loans}, nil
}

func (s *Server) handleListUserBorrows(ctx context.Context, input *UserLoanFilterInput) (*LoanListOutput, error) {
	if _, err := RequireStaff(ctx); err != nil {
		return nil, err
	}

	loans, err := s.services.Loan.ListLoansForUser(ctx, input.UserID, input.toRequest())
	if err != nil {
		return nil, err
	}

	return &LoanListOutput{Body: loans}, nil
}
