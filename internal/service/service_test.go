package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

const testKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

// testServices bundles every service over a single temp-dir store.
type testServices struct {
	store    store.Store
	tokens   *auth.TokenService
	sessions *SessionService
	auth     *AuthService
	profiles *ProfileService
	authors  *AuthorService
	books    *BookService
	loans    *LoanService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := sqlite.Open(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tokens, err := auth.NewTokenService(testKeyHex, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	sessions := NewSessionService(s, tokens, nil)

	return &testServices{
		store:    s,
		tokens:   tokens,
		sessions: sessions,
		auth:     NewAuthService(s, tokens, sessions, 0, nil),
		profiles: NewProfileService(s, sessions, nil),
		authors:  NewAuthorService(s, nil),
		books:    NewBookService(s, nil),
		loans:    NewLoanService(s, nil),
	}
}

// createTestUser inserts a user directly, bypassing registration, so
// tests can control quota and staff flags.
func createTestUser(t *testing.T, s store.Store, email, username string, maxBooks int, isStaff bool) *domain.User {
	t.Helper()

	hash, err := auth.HashPassword("password123!")
	require.NoError(t, err)

	user := &domain.User{
		Record:          domain.Record{ID: id.MustGenerate("user")},
		Email:           email,
		Username:        username,
		PasswordHash:    hash,
		IsStaff:         isStaff,
		MaxBooksAllowed: maxBooks,
	}
	user.InitTimestamps()
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

// createTestBook inserts an available book directly.
func createTestBook(t *testing.T, s store.Store, title, authorID string) *domain.Book {
	t.Helper()

	book := &domain.Book{
		Record:      domain.Record{ID: id.MustGenerate("book")},
		Title:       title,
		AuthorID:    authorID,
		ISBN:        "9780000000001",
		PublishDate: time.Date(1949, 6, 8, 0, 0, 0, 0, time.UTC),
		PageCount:   328,
		Language:    domain.LanguageEnglish,
		IsAvailable: true,
	}
	book.InitTimestamps()
	require.NoError(t, s.CreateBook(context.Background(), book))
	return book
}
