package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

func validCreateBookRequest() CreateBookRequest {
	return CreateBookRequest{
		Title:       "Nineteen Eighty-Four",
		Description: "A dystopian novel.",
		ISBN:        "9780451524935",
		PublishDate: "1949-06-08",
		PageCount:   328,
		Language:    "EN",
	}
}

func TestBookService_CreateBook(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	author, err := svc.authors.CreateAuthor(ctx, CreateAuthorRequest{Name: "George Orwell"})
	require.NoError(t, err)

	req := validCreateBookRequest()
	req.AuthorID = author.ID
	book, err := svc.books.CreateBook(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Nineteen Eighty-Four", book.Title)
	assert.Equal(t, "George Orwell", book.AuthorName)
	assert.True(t, book.IsAvailable)
	assert.Nil(t, book.CurrentBorrower)
}

func TestBookService_CreateBook_TenDigitISBN(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	req := validCreateBookRequest()
	req.ISBN = "0306406152"
	book, err := svc.books.CreateBook(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "0306406152", book.ISBN)
}

func TestBookService_CreateBook_Validation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateBookRequest)
		wantMsg string
	}{
		{
			name:    "missing title",
			mutate:  func(r *CreateBookRequest) { r.Title = "" },
			wantMsg: "title is required",
		},
		{
			name:    "short isbn",
			mutate:  func(r *CreateBookRequest) { r.ISBN = "12345" },
			wantMsg: "isbn must be a 10 or 13 digit number",
		},
		{
			name:    "eleven digit isbn",
			mutate:  func(r *CreateBookRequest) { r.ISBN = "97804515249" },
			wantMsg: "isbn must be a 10 or 13 digit number",
		},
		{
			name:    "non-digit isbn",
			mutate:  func(r *CreateBookRequest) { r.ISBN = "97804515249AB" },
			wantMsg: "isbn must be a 10 or 13 digit number",
		},
		{
			name:    "zero page count",
			mutate:  func(r *CreateBookRequest) { r.PageCount = 0 },
			wantMsg: "page_count is required",
		},
		{
			name:    "negative page count",
			mutate:  func(r *CreateBookRequest) { r.PageCount = -10 },
			wantMsg: "page_count must be greater than 0",
		},
		{
			name:    "unknown language",
			mutate:  func(r *CreateBookRequest) { r.Language = "XX" },
			wantMsg: "language must be one of: EN FR AR ES CZ NL",
		},
		{
			name:    "bad publish date",
			mutate:  func(r *CreateBookRequest) { r.PublishDate = "08/06/1949" },
			wantMsg: "publish_date must be a date in YYYY-MM-DD format",
		},
		{
			name: "future publish date",
			mutate: func(r *CreateBookRequest) {
				r.PublishDate = time.Now().AddDate(1, 0, 0).Format("2006-01-02")
			},
			wantMsg: "publish_date cannot be in the future",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateBookRequest()
			tt.mutate(&req)

			_, err := svc.books.CreateBook(ctx, req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, tt.wantMsg, domainErr.Message)
		})
	}
}

func TestBookService_CreateBook_UnknownAuthor(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	req := validCreateBookRequest()
	req.AuthorID = "author-missing"
	_, err := svc.books.CreateBook(ctx, req)
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "author_id does not reference an existing author", domainErr.Message)
}

func TestBookService_CreateBook_Duplicate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.books.CreateBook(ctx, validCreateBookRequest())
	require.NoError(t, err)

	_, err = svc.books.CreateBook(ctx, validCreateBookRequest())
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestBookService_ListBooks_Filters(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	orwell, err := svc.authors.CreateAuthor(ctx, CreateAuthorRequest{Name: "George Orwell"})
	require.NoError(t, err)
	capek, err := svc.authors.CreateAuthor(ctx, CreateAuthorRequest{Name: "Karel Capek"})
	require.NoError(t, err)

	books := []CreateBookRequest{
		{Title: "Nineteen Eighty-Four", AuthorID: orwell.ID, ISBN: "9780451524935", PublishDate: "1949-06-08", PageCount: 328, Language: "EN"},
		{Title: "Animal Farm", AuthorID: orwell.ID, ISBN: "9780451526342", PublishDate: "1945-08-17", PageCount: 112, Language: "EN"},
		{Title: "War with the Newts", AuthorID: capek.ID, ISBN: "9780810114685", PublishDate: "1936-01-01", PageCount: 241, Language: "CZ", Description: "Satirical science fiction."},
	}
	for _, req := range books {
		_, err := svc.books.CreateBook(ctx, req)
		require.NoError(t, err)
	}

	tests := []struct {
		name       string
		req        BookListRequest
		wantTitles []string
	}{
		{
			name:       "no filters",
			req:        BookListRequest{},
			wantTitles: []string{"Nineteen Eighty-Four", "Animal Farm", "War with the Newts"},
		},
		{
			name:       "title contains",
			req:        BookListRequest{Title: "farm"},
			wantTitles: []string{"Animal Farm"},
		},
		{
			name:       "author name contains",
			req:        BookListRequest{AuthorName: "orwell"},
			wantTitles: []string{"Nineteen Eighty-Four", "Animal Farm"},
		},
		{
			name:       "language",
			req:        BookListRequest{Language: "CZ"},
			wantTitles: []string{"War with the Newts"},
		},
		{
			name:       "publish year",
			req:        BookListRequest{PublishYear: 1945},
			wantTitles: []string{"Animal Farm"},
		},
		{
			name:       "page count range",
			req:        BookListRequest{PageCountMin: 200, PageCountMax: 300},
			wantTitles: []string{"War with the Newts"},
		},
		{
			name:       "search hits description",
			req:        BookListRequest{Search: "satirical"},
			wantTitles: []string{"War with the Newts"},
		},
		{
			name:       "isbn exact",
			req:        BookListRequest{ISBN: "9780451524935"},
			wantTitles: []string{"Nineteen Eighty-Four"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.books.ListBooks(ctx, tt.req)
			require.NoError(t, err)

			titles := make([]string, 0, len(got))
			for _, b := range got {
				titles = append(titles, b.Title)
			}
			assert.ElementsMatch(t, tt.wantTitles, titles)
		})
	}
}

func TestBookService_ListBooks_AvailabilityFilter(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)
	borrowed := createTestBook(t, svc.store, "Borrowed", "")
	createTestBook(t, svc.store, "On Shelf", "")

	_, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: borrowed.ID})
	require.NoError(t, err)

	available := true
	got, err := svc.books.ListBooks(ctx, BookListRequest{IsAvailable: &available})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "On Shelf", got[0].Title)

	unavailable := false
	got, err = svc.books.ListBooks(ctx, BookListRequest{IsAvailable: &unavailable})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Borrowed", got[0].Title)
}

func TestBookService_ListPopularBooks(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	user := createTestUser(t, svc.store, "reader@example.com", "reader", 5, false)
	hot := createTestBook(t, svc.store, "Hot", "")
	warm := createTestBook(t, svc.store, "Warm", "")
	createTestBook(t, svc.store, "Untouched", "")

	// Two completed loans for hot, one for warm.
	for range 2 {
		loan, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: hot.ID})
		require.NoError(t, err)
		_, err = svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: loan.ID})
		require.NoError(t, err)
	}
	loan, err := svc.loans.Borrow(ctx, user.ID, BorrowRequest{BookID: warm.ID})
	require.NoError(t, err)
	_, err = svc.loans.Return(ctx, user.ID, false, ReturnRequest{LoanID: loan.ID})
	require.NoError(t, err)

	popular, err := svc.books.ListPopularBooks(ctx, BookListRequest{})
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "Hot", popular[0].Title)
	assert.Equal(t, 2, popular[0].LoanCount)
	assert.Equal(t, "Warm", popular[1].Title)
	assert.Equal(t, 1, popular[1].LoanCount)
}

func TestBookService_UpdateBook(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	book, err := svc.books.CreateBook(ctx, validCreateBookRequest())
	require.NoError(t, err)

	pageCount := 336
	description := "Revised edition."
	updated, err := svc.books.UpdateBook(ctx, book.ID, UpdateBookRequest{
		PageCount:   &pageCount,
		Description: &description,
	})
	require.NoError(t, err)
	assert.Equal(t, 336, updated.PageCount)
	assert.Equal(t, "Revised edition.", updated.Description)
	assert.Equal(t, "Nineteen Eighty-Four", updated.Title)
}

func TestBookService_UpdateBook_FuturePublishDate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	book, err := svc.books.CreateBook(ctx, validCreateBookRequest())
	require.NoError(t, err)

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	_, err = svc.books.UpdateBook(ctx, book.ID, UpdateBookRequest{PublishDate: &future})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "publish_date cannot be in the future", domainErr.Message)
}

func TestBookService_UpdateBook_TenDigitISBN(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	book, err := svc.books.CreateBook(ctx, validCreateBookRequest())
	require.NoError(t, err)

	isbn := "0306406152"
	updated, err := svc.books.UpdateBook(ctx, book.ID, UpdateBookRequest{ISBN: &isbn})
	require.NoError(t, err)
	assert.Equal(t, "0306406152", updated.ISBN)
}

func TestBookService_DeleteBook(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	book, err := svc.books.CreateBook(ctx, validCreateBookRequest())
	require.NoError(t, err)

	require.NoError(t, svc.books.DeleteBook(ctx, book.ID))

	_, err = svc.books.GetBook(ctx, book.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	err = svc.books.DeleteBook(ctx, book.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
