package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

func TestLoanService_Borrow_Success(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)
	book := createTestBook(t, svc.store, "Nineteen Eighty-Four", "")

	loan, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loan.UserID)
	assert.Equal(t, book.ID, loan.BookID)
	assert.True(t, loan.IsActive())
	assert.False(t, loan.BorrowedAt.IsZero())

	detail, err := svc.books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsAvailable)
	require.NotNil(t, detail.CurrentBorrower)
	assert.Equal(t, user.ID, detail.CurrentBorrower.UserID)
	assert.Equal(t, "reader", detail.CurrentBorrower.Username)
}

func TestLoanService_Borrow_BookNotFound(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)

	_, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: "book-missing"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "Book with this ID does not exist.", domainErr.Message)
	assert.Equal(t, map[string][]string{"book_id": {"Book with this ID does not exist."}}, domainErr.Details)
}

func TestLoanService_Borrow_AlreadyOnLoan(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := createTestUser(t, svc.store, "alice@example.com", "alice", 5, false)
	carol := createTestUser(t, svc.store, "carol@example.com", "carol", 5, false)
	book := createTestBook(t, svc.store, "Nineteen Eighty-Four", "")

	_, err := svc.loans.Borrow(ctx, alice.ID, BorrowRequest{BookID: book.ID})
	require.NoError(t, err)

	// Rejected regardless of who asks, including the current holder.
	for _, userID := range []string{carol.ID, alice.ID} {
		_, err = svc.loans.Borrow(ctx, userID, BorrowRequest{BookID: book.ID})
		require.Error(t, err)

		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "This book is currently borrowed by another user.", domainErr.Message)
	}
}

func TestLoanService_Borrow_QuotaExceeded(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 2, false)

	for i := range 2 {
		book := createTestBook(t, svc.store, fmt.Sprintf("Book %d", i), "")
		_, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: book.ID})
		require.NoError(t, err)
	}

	extra := createTestBook(t, svc.store, "One Too Many", "")
	_, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: extra.ID})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeQuotaExceeded, domainErr.Code)
	assert.Equal(t, "You have reached your maximum book borrowing limit.", domainErr.Message)
}

func TestLoanService_Borrow_QuotaFreedByReturn(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 1, false)
	first := createTestBook(t, svc.store, "First", "")
	second := createTestBook(t, svc.store, "Second", "")

	loan, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: first.ID})
	require.NoError(t, err)

	_, err = svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: second.ID})
	require.Error(t, err)

	_, err = svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: loan.ID})
	require.NoError(t, err)

	_, err = svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: second.ID})
	require.NoError(t, err)
}

func TestLoanService_Return_Success(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)
	book := createTestBook(t, svc.store, "Nineteen Eighty-Four", "")

	loan, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: book.ID})
	require.NoError(t, err)

	returned, err := svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: loan.ID})
	require.NoError(t, err)
	assert.False(t, returned.IsActive())
	require.NotNil(t, returned.ReturnedAt)

	// The return is recorded as a calendar day, with no clock component.
	got := *returned.ReturnedAt
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(got.Truncate(24*time.Hour)))

	detail, err := svc.books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsAvailable)
	assert.Nil(t, detail.CurrentBorrower)
}

func TestLoanService_Return_NotFound(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)

	_, err := svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: "loan-missing"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "Loan with this ID does not exist.", domainErr.Message)
}

func TestLoanService_Return_AlreadyReturned(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)
	book := createTestBook(t, svc.store, "Nineteen Eighty-Four", "")

	loan, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: book.ID})
	require.NoError(t, err)

	_, err = svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: loan.ID})
	require.NoError(t, err)

	_, err = svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: loan.ID})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "This book has already been returned.", domainErr.Message)
}

func TestLoanService_Return_OwnershipEnforced(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := createTestUser(t, svc.store, "alice@example.com", "alice", 5, false)
	carol := createTestUser(t, svc.store, "carol@example.com", "carol", 5, false)
	staff := createTestUser(t, svc.store, "staff@example.com", "staff", 5, true)
	book := createTestBook(t, svc.store, "Nineteen Eighty-Four", "")

	loan, err := svc.loans.Borrow(ctx, alice.ID, BorrowRequest{BookID: book.ID})
	require.NoError(t, err)

	_, err = svc.loans.Return(ctx, carol.ID, false, ReturnRequest{LoanID: loan.ID})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeForbidden, domainErr.Code)
	assert.Equal(t, "You can only return your own borrowed books.", domainErr.Message)

	// Staff may return on a member's behalf.
	_, err = svc.loans.Return(ctx, staff.ID, true, ReturnRequest{LoanID: loan.ID})
	require.NoError(t, err)
}

func TestLoanService_ListUserLoans_Filters(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	alice := createTestUser(t, svc.store, "alice@example.com", "alice", 5, false)
	carol := createTestUser(t, svc.store, "carol@example.com", "carol", 5, false)
	first := createTestBook(t, svc.store, "Nineteen Eighty-Four", "")
	second := createTestBook(t, svc.store, "Animal Farm", "")

	loan, err := svc.loans.Borrow(ctx, alice.ID, BorrowRequest{BookID: first.ID})
	require.NoError(t, err)
	_, err = svc.loans.Borrow(ctx, carol.ID, BorrowRequest{BookID: second.ID})
	require.NoError(t, err)

	// Own listing only sees own loans.
	loans, err := svc.loans.ListUserLoans(ctx, alice.ID, LoanListRequest{})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "Nineteen Eighty-Four", loans[0].BookTitle)
	assert.Equal(t, "alice", loans[0].Username)

	// Staff listing sees everything.
	all, err := svc.loans.ListAllLoans(ctx, LoanListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Status filter.
	_, err = svc.loans.Return(ctx, alice.ID, false, ReturnRequest{LoanID: loan.ID})
	require.NoError(t, err)

	active, err := svc.loans.ListAllLoans(ctx, LoanListRequest{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Animal Farm", active[0].BookTitle)

	returned, err := svc.loans.ListAllLoans(ctx, LoanListRequest{Status: "returned"})
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, "Nineteen Eighty-Four", returned[0].BookTitle)

	// Title filter, case-insensitive substring.
	farm, err := svc.loans.ListAllLoans(ctx, LoanListRequest{BookTitle: "farm"})
	require.NoError(t, err)
	require.Len(t, farm, 1)
	assert.Equal(t, "Animal Farm", farm[0].BookTitle)
}

func TestLoanService_ListUserLoans_DateFiltersCoverToday(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)
	book := createTestBook(t, svc.store, "Nineteen Eighty-Four", "")

	loan, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: book.ID})
	require.NoError(t, err)

	// A loan borrowed today matches a borrowed_before filter naming today.
	today := time.Now().UTC().Format("2006-01-02")
	loans, err := svc.loans.ListUserLoans(ctx, user.ID, LoanListRequest{BorrowedBefore: today})
	require.NoError(t, err)
	require.Len(t, loans, 1)

	returned, err := svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: loan.ID})
	require.NoError(t, err)

	returnedDay := returned.ReturnedAt.Format("2006-01-02")
	loans, err = svc.loans.ListUserLoans(ctx, user.ID, LoanListRequest{ReturnedBefore: returnedDay})
	require.NoError(t, err)
	require.Len(t, loans, 1)

	loans, err = svc.loans.ListUserLoans(ctx, user.ID, LoanListRequest{ReturnedAfter: returnedDay})
	require.NoError(t, err)
	require.Len(t, loans, 1)
}

func TestLoanService_ListLoansForUser_UnknownUser(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.loans.ListLoansForUser(ctx, "user-missing", LoanListRequest{})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
