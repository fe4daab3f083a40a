package domain

import "time"

// Loan records one borrowing of a book by a user.
// BorrowedAt is set at creation and never changes; ReturnedAt stays nil
// while the loan is active.
type Loan struct {
	Record
	UserID     string     `json:"user_id"`
	BookID     string     `json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// IsActive returns true while the book has not been returned.
func (l *Loan) IsActive() bool {
	return l.ReturnedAt == nil
}

// MarkReturned closes the loan on the given day.
func (l *Loan) MarkReturned(at time.Time) {
	l.ReturnedAt = &at
	l.Touch()
}

// LoanStatus filters loan listings.
type LoanStatus string

// Loan listing statuses.
const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
)
