package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// authorColumns is the ordered list of columns selected in author queries.
// Must match the scan order in scanAuthor.
const authorColumns = `id, created_at, updated_at, name, nationality, date_of_birth, date_of_death`

// scanAuthor scans a sql.Row (or sql.Rows via its Scan method) into a domain.Author.
func scanAuthor(scanner interface{ Scan(dest ...any) error }) (*domain.Author, error) {
	var a domain.Author

	var (
		createdAt   string
		updatedAt   string
		nationality sql.NullString
		dateOfBirth sql.NullString
		dateOfDeath sql.NullString
	)

	err := scanner.Scan(
		&a.ID,
		&createdAt,
		&updatedAt,
		&a.Name,
		&nationality,
		&dateOfBirth,
		&dateOfDeath,
	)
	if err != nil {
		return nil, err
	}

	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if nationality.Valid {
		a.Nationality = nationality.String
	}
	a.DateOfBirth, err = parseNullableTime(dateOfBirth)
	if err != nil {
		return nil, err
	}
	a.DateOfDeath, err = parseNullableTime(dateOfDeath)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// CreateAuthor inserts a new author into the database.
func (s *Store) CreateAuthor(ctx context.Context, author *domain.Author) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO authors (id, created_at, updated_at, name, nationality, date_of_birth, date_of_death)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		author.ID,
		formatTime(author.CreatedAt),
		formatTime(author.UpdatedAt),
		author.Name,
		nullString(author.Nationality),
		nullTimeString(author.DateOfBirth),
		nullTimeString(author.DateOfDeath),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetAuthor retrieves an author by ID.
// Returns store.ErrNotFound if the author does not exist.
func (s *Store) GetAuthor(ctx context.Context, id string) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+authorColumns+` FROM authors WHERE id = ?`, id)

	a, err := scanAuthor(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAuthor performs a full row update on an existing author.
// Returns store.ErrNotFound if the author does not exist.
func (s *Store) UpdateAuthor(ctx context.Context, author *domain.Author) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE authors SET updated_at = ?, name = ?, nationality = ?, date_of_birth = ?, date_of_death = ?
		WHERE id = ?`,
		formatTime(author.UpdatedAt),
		author.Name,
		nullString(author.Nationality),
		nullTimeString(author.DateOfBirth),
		nullTimeString(author.DateOfDeath),
		author.ID,
	)
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
	return nil
}

// DeleteAuthor removes an author. Books referencing the author keep their
// rows but lose the reference. The detach runs as an explicit UPDATE in
// the same transaction; the foreign_keys pragma is per-connection, so the
// ON DELETE SET NULL action alone is not guaranteed on every pooled
// connection.
// Returns store.ErrNotFound if the author does not exist.
func (s *Store) DeleteAuthor(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET author_id = NULL WHERE author_id = ?`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
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

// ListAuthors returns all authors ordered by name.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+authorColumns+` FROM authors ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []*domain.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return authors, nil
}
