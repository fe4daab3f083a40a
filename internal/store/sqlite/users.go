package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, email, username, password_hash,
	first_name, last_name, phone_number, date_of_birth, is_verified, is_staff,
	member_number, library_card_number, max_books_allowed, last_login_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		createdAt   string
		updatedAt   string
		phoneNumber sql.NullString
		dateOfBirth sql.NullString
		isVerified  int
		isStaff     int
		lastLoginAt sql.NullString
	)

	err := scanner.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&phoneNumber,
		&dateOfBirth,
		&isVerified,
		&isStaff,
		&u.MemberNumber,
		&u.LibraryCardNumber,
		&u.MaxBooksAllowed,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if phoneNumber.Valid {
		u.PhoneNumber = phoneNumber.String
	}
	u.DateOfBirth, err = parseNullableTime(dateOfBirth)
	if err != nil {
		return nil, err
	}

	u.IsVerified = isVerified != 0
	u.IsStaff = isStaff != 0

	// Last login: time.Time zero value means never logged in.
	if lastLoginAt.Valid && lastLoginAt.String != "" {
		u.LastLoginAt, err = parseTime(lastLoginAt.String)
		if err != nil {
			return nil, err
		}
	}

	return &u, nil
}

// CreateUser inserts a new user, allocating the next member number and the
// derived library card number inside the same transaction.
// Returns store.ErrAlreadyExists if the email or username is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	emailLower := strings.ToLower(strings.TrimSpace(user.Email))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	var memberNumber int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(member_number), 0) + 1 FROM users`).Scan(&memberNumber)
	if err != nil {
		return err
	}
	user.MemberNumber = memberNumber
	user.LibraryCardNumber = domain.FormatLibraryCard(memberNumber)

	var lastLoginVal sql.NullString
	if !user.LastLoginAt.IsZero() {
		lastLoginVal = sql.NullString{String: formatTime(user.LastLoginAt), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (
			id, created_at, updated_at, email, email_lower, username, password_hash,
			first_name, last_name, phone_number, date_of_birth, is_verified, is_staff,
			member_number, library_card_number, max_books_allowed, last_login_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Email,
		emailLower,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		nullString(user.PhoneNumber),
		nullTimeString(user.DateOfBirth),
		boolToInt(user.IsVerified),
		boolToInt(user.IsStaff),
		user.MemberNumber,
		user.LibraryCardNumber,
		user.MaxBooksAllowed,
		lastLoginVal,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	return tx.Commit()
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail retrieves a user by lowercased email.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	lower := strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_lower = ?`, lower)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser performs a full row update on an existing user.
// The member number and library card number never change after creation.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	emailLower := strings.ToLower(strings.TrimSpace(user.Email))

	var lastLoginVal sql.NullString
	if !user.LastLoginAt.IsZero() {
		lastLoginVal = sql.NullString{String: formatTime(user.LastLoginAt), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET updated_at = ?, email = ?, email_lower = ?, username = ?,
			password_hash = ?, first_name = ?, last_name = ?, phone_number = ?,
			date_of_birth = ?, is_verified = ?, is_staff = ?, max_books_allowed = ?,
			last_login_at = ?
		WHERE id = ?`,
		formatTime(user.UpdatedAt),
		user.Email,
		emailLower,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		nullString(user.PhoneNumber),
		nullTimeString(user.DateOfBirth),
		boolToInt(user.IsVerified),
		boolToInt(user.IsStaff),
		user.MaxBooksAllowed,
		lastLoginVal,
		user.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
