package domain

import (
	"fmt"
	"time"
)

// DefaultMaxBooksAllowed is the borrowing quota assigned to new members.
const DefaultMaxBooksAllowed = 5

// User represents a library member account.
type User struct {
	Record
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`

	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`

	IsVerified bool `json:"is_verified"`
	IsStaff    bool `json:"is_staff"`

	// MemberNumber is a monotonic counter assigned at creation; the
	// printed card number is derived from it.
	MemberNumber      int64  `json:"-"`
	LibraryCardNumber string `json:"library_card_number"`

	MaxBooksAllowed int `json:"max_books_allowed"`

	LastLoginAt time.Time `json:"last_login_at,omitzero"`
}

// FormatLibraryCard renders a member number as a printed card number.
func FormatLibraryCard(memberNumber int64) string {
	return fmt.Sprintf("LIB%06d", memberNumber)
}

// FullName returns the user's full name, composed from first and last names.
// Falls back to the username when neither is set.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CanBorrow reports whether a user with the given number of active loans
// is still under their borrowing quota.
func (u *User) CanBorrow(activeLoans int) bool {
	return activeLoans < u.MaxBooksAllowed
}
