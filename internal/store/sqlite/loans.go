package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// loanColumns is the ordered list of columns selected in loan queries.
// Must match the scan order in scanLoan.
const loanColumns = `id, created_at, updated_at, user_id, book_id, borrowed_at, returned_at`

// scanLoan scans a sql.Row (or sql.Rows via its Scan method) into a domain.Loan.
func scanLoan(scanner interface{ Scan(dest ...any) error }) (*domain.Loan, error) {
	var l domain.Loan

	var (
		createdAt  string
		updatedAt  string
		borrowedAt string
		returnedAt sql.NullString
	)

	err := scanner.Scan(
		&l.ID,
		&createdAt,
		&updatedAt,
		&l.UserID,
		&l.BookID,
		&borrowedAt,
		&returnedAt,
	)
	if err != nil {
		return nil, err
	}

	l.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	l.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	l.BorrowedAt, err = parseTime(borrowedAt)
	if err != nil {
		return nil, err
	}
	l.ReturnedAt, err = parseNullableTime(returnedAt)
	if err != nil {
		return nil, err
	}

	return &l, nil
}

// BorrowBook records a new loan and marks the book unavailable in a single
// transaction. The no-active-loan invariant is re-checked inside the
// transaction so a concurrent borrow of the same book cannot interleave;
// the partial unique index on loans backs this up at the storage level.
// Returns store.ErrConflict if the book already has an active loan.
func (s *Store) BorrowBook(ctx context.Context, loan *domain.Loan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND returned_at IS NULL`, loan.BookID).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return store.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans (id, created_at, updated_at, user_id, book_id, borrowed_at, returned_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		loan.ID,
		formatTime(loan.CreatedAt),
		formatTime(loan.UpdatedAt),
		loan.UserID,
		loan.BookID,
		formatTime(loan.BorrowedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrConflict
		}
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE books SET is_available = 0, updated_at = ? WHERE id = ?`,
		formatTime(loan.BorrowedAt), loan.BookID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

// GetLoan retrieves a loan by ID.
// Returns store.ErrNotFound if the loan does not exist.
func (s *Store) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)

	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CloseLoan sets the loan's return time and marks the book available again,
// in a single transaction. The update is conditioned on the loan still being
// active, so a double return loses the race cleanly.
// Returns store.ErrNotFound for an unknown loan and store.ErrConflict when
// the loan was already returned.
func (s *Store) CloseLoan(ctx context.Context, loanID string, returnedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	var bookID string
	err = tx.QueryRowContext(ctx,
		`SELECT book_id FROM loans WHERE id = ?`, loanID).Scan(&bookID)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET returned_at = ?, updated_at = ? WHERE id = ? AND returned_at IS NULL`,
		formatTime(returnedAt), formatTime(now), loanID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET is_available = 1, updated_at = ? WHERE id = ?`,
		formatTime(now), bookID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetActiveLoanForBook returns the book's current loan, if any.
// Returns store.ErrNotFound when the book is not on loan.
func (s *Store) GetActiveLoanForBook(ctx context.Context, bookID string) (*domain.Loan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE book_id = ? AND returned_at IS NULL`, bookID)

	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// CountActiveLoans returns how many books the user currently has out.
func (s *Store) CountActiveLoans(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE user_id = ? AND returned_at IS NULL`, userID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// HasActiveLoan reports whether the user currently has the book out.
func (s *Store) HasActiveLoan(ctx context.Context, userID, bookID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE user_id = ? AND book_id = ? AND returned_at IS NULL`,
		userID, bookID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCurrentBorrower returns who currently holds the book.
// Returns store.ErrNotFound when the book is not on loan.
func (s *Store) GetCurrentBorrower(ctx context.Context, bookID string) (*store.Borrower, error) {
	var (
		b          store.Borrower
		borrowedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT l.user_id, u.username, l.borrowed_at
		FROM loans l
		JOIN users u ON u.id = l.user_id
		WHERE l.book_id = ? AND l.returned_at IS NULL`, bookID).
		Scan(&b.UserID, &b.Username, &borrowedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.BorrowedAt, err = parseTime(borrowedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListLoans returns loans matching the filter with book and user display
// fields joined in, most recent borrow first.
func (s *Store) ListLoans(ctx context.Context, filter store.LoanFilter) ([]*store.LoanDetail, error) {
	var (
		conds []string
		args  []any
	)

	if filter.UserID != "" {
		conds = append(conds, "l.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Username != "" {
		conds = append(conds, "u.username LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Username+"%")
	}
	if filter.UserEmail != "" {
		conds = append(conds, "u.email_lower = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(filter.UserEmail)))
	}
	if filter.BookTitle != "" {
		conds = append(conds, "b.title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.BookTitle+"%")
	}
	if filter.BookAuthor != "" {
		conds = append(conds, "a.name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.BookAuthor+"%")
	}
	switch filter.Status {
	case domain.LoanStatusActive:
		conds = append(conds, "l.returned_at IS NULL")
	case domain.LoanStatusReturned:
		conds = append(conds, "l.returned_at IS NOT NULL")
	}
	if filter.BorrowedAfter != nil {
		conds = append(conds, "l.borrowed_at >= ?")
		args = append(args, formatTime(*filter.BorrowedAfter))
	}
	// Before filters name a calendar day and cover all of it; the stored
	// timestamps carry clock time, so compare against the next day's start.
	if filter.BorrowedBefore != nil {
		conds = append(conds, "l.borrowed_at < ?")
		args = append(args, formatTime(filter.BorrowedBefore.AddDate(0, 0, 1)))
	}
	if filter.ReturnedAfter != nil {
		conds = append(conds, "l.returned_at >= ?")
		args = append(args, formatTime(*filter.ReturnedAfter))
	}
	if filter.ReturnedBefore != nil {
		conds = append(conds, "l.returned_at < ?")
		args = append(args, formatTime(filter.ReturnedBefore.AddDate(0, 0, 1)))
	}

	query := `
		SELECT l.id, l.created_at, l.updated_at, l.user_id, l.book_id, l.borrowed_at, l.returned_at,
			b.title, a.name, u.username, u.email
		FROM loans l
		JOIN books b ON b.id = l.book_id
		JOIN users u ON u.id = l.user_id
		LEFT JOIN authors a ON a.id = b.author_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY l.borrowed_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*store.LoanDetail
	for rows.Next() {
		var d store.LoanDetail
		var (
			createdAt  string
			updatedAt  string
			borrowedAt string
			returnedAt sql.NullString
			bookAuthor sql.NullString
		)

		err := rows.Scan(
			&d.ID, &createdAt, &updatedAt, &d.UserID, &d.BookID, &borrowedAt, &returnedAt,
			&d.BookTitle, &bookAuthor, &d.Username, &d.UserEmail,
		)
		if err != nil {
			return nil, err
		}

		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if d.BorrowedAt, err = parseTime(borrowedAt); err != nil {
			return nil, err
		}
		if d.ReturnedAt, err = parseNullableTime(returnedAt); err != nil {
			return nil, err
		}
		if bookAuthor.Valid {
			d.BookAuthor = bookAuthor.String
		}

		loans = append(loans, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}
