package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `b.id, b.created_at, b.updated_at, b.title, b.author_id, b.description,
	b.isbn, b.publish_date, b.page_count, b.language, b.is_available, a.name`

// scanBook scans a joined book+author row into a store.BookWithAuthor.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*store.BookWithAuthor, error) {
	var b store.BookWithAuthor

	var (
		createdAt   string
		updatedAt   string
		authorID    sql.NullString
		publishDate string
		isAvailable int
		authorName  sql.NullString
	)

	err := scanner.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&b.Title,
		&authorID,
		&b.Description,
		&b.ISBN,
		&publishDate,
		&b.PageCount,
		&b.Language,
		&isAvailable,
		&authorName,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	b.PublishDate, err = parseTime(publishDate)
	if err != nil {
		return nil, err
	}

	if authorID.Valid {
		b.AuthorID = authorID.String
	}
	if authorName.Valid {
		b.AuthorName = authorName.String
	}
	b.IsAvailable = isAvailable != 0

	return &b, nil
}

// CreateBook inserts a new book into the database.
// Returns store.ErrAlreadyExists when (title, author, publish date) collide.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, created_at, updated_at, title, author_id, description,
			isbn, publish_date, page_count, language, is_available)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		book.Title,
		nullString(book.AuthorID),
		book.Description,
		book.ISBN,
		formatTime(book.PublishDate),
		book.PageCount,
		string(book.Language),
		boolToInt(book.IsAvailable),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return store.ErrInvalidInput.WithMessage("author does not exist")
		}
		return err
	}
	return nil
}

// GetBook retrieves a book by ID with its author's name.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*store.BookWithAuthor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+bookColumns+` FROM books b
		LEFT JOIN authors a ON a.id = b.author_id
		WHERE b.id = ?`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBook performs a full row update on an existing book.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET updated_at = ?, title = ?, author_id = ?, description = ?,
			isbn = ?, publish_date = ?, page_count = ?, language = ?, is_available = ?
		WHERE id = ?`,
		formatTime(book.UpdatedAt),
		book.Title,
		nullString(book.AuthorID),
		book.Description,
		book.ISBN,
		formatTime(book.PublishDate),
		book.PageCount,
		string(book.Language),
		boolToInt(book.IsAvailable),
		book.ID,
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

// DeleteBook removes a book and its loan history.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE book_id = ?`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
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

// ListBooks returns books matching the filter, most recently published
// first.
func (s *Store) ListBooks(ctx context.Context, filter store.BookFilter) ([]*store.BookWithAuthor, error) {
	where, args := buildBookFilter(filter)

	query := `SELECT ` + bookColumns + ` FROM books b LEFT JOIN authors a ON a.id = b.author_id`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY b.publish_date DESC, b.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*store.BookWithAuthor
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// ListPopularBooks returns the most-borrowed books matching the filter.
// Books that have never been borrowed are excluded.
func (s *Store) ListPopularBooks(ctx context.Context, filter store.BookFilter) ([]*store.PopularBook, error) {
	where, args := buildBookFilter(filter)

	query := `
		SELECT ` + bookColumns + `, COUNT(l.id) AS loan_count
		FROM books b
		LEFT JOIN authors a ON a.id = b.author_id
		JOIN loans l ON l.book_id = b.id`
	if where != "" {
		query += " WHERE " + where
	}
	query += `
		GROUP BY b.id
		HAVING COUNT(l.id) > 0
		ORDER BY loan_count DESC, b.title ASC
		LIMIT ?`
	args = append(args, store.PopularBooksLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*store.PopularBook
	for rows.Next() {
		var p store.PopularBook
		var (
			createdAt   string
			updatedAt   string
			authorID    sql.NullString
			publishDate string
			isAvailable int
			authorName  sql.NullString
		)

		err := rows.Scan(
			&p.ID, &createdAt, &updatedAt, &p.Title, &authorID, &p.Description,
			&p.ISBN, &publishDate, &p.PageCount, &p.Language, &isAvailable, &authorName,
			&p.LoanCount,
		)
		if err != nil {
			return nil, err
		}

		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if p.PublishDate, err = parseTime(publishDate); err != nil {
			return nil, err
		}
		if authorID.Valid {
			p.AuthorID = authorID.String
		}
		if authorName.Valid {
			p.AuthorName = authorName.String
		}
		p.IsAvailable = isAvailable != 0

		books = append(books, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// buildBookFilter translates a store.BookFilter into SQL conditions.
func buildBookFilter(filter store.BookFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.Title != "" {
		conds = append(conds, "b.title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.AuthorName != "" {
		conds = append(conds, "a.name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.AuthorName+"%")
	}
	if filter.ISBN != "" {
		conds = append(conds, "b.isbn = ?")
		args = append(args, filter.ISBN)
	}
	if filter.Language != "" {
		conds = append(conds, "b.language = ?")
		args = append(args, string(filter.Language))
	}
	if filter.PublishYear != 0 {
		conds = append(conds, "CAST(strftime('%Y', b.publish_date) AS INTEGER) = ?")
		args = append(args, filter.PublishYear)
	}
	if filter.PublishDateAfter != nil {
		conds = append(conds, "b.publish_date >= ?")
		args = append(args, formatTime(*filter.PublishDateAfter))
	}
	if filter.PublishDateBefore != nil {
		conds = append(conds, "b.publish_date <= ?")
		args = append(args, formatTime(*filter.PublishDateBefore))
	}
	if filter.PageCountMin != 0 {
		conds = append(conds, "b.page_count >= ?")
		args = append(args, filter.PageCountMin)
	}
	if filter.PageCountMax != 0 {
		conds = append(conds, "b.page_count <= ?")
		args = append(args, filter.PageCountMax)
	}
	if filter.IsAvailable != nil {
		conds = append(conds, "b.is_available = ?")
		args = append(args, boolToInt(*filter.IsAvailable))
	}
	if filter.Search != "" {
		conds = append(conds, "(b.title LIKE ? COLLATE NOCASE OR a.name LIKE ? COLLATE NOCASE OR b.description LIKE ? COLLATE NOCASE)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	return strings.Join(conds, " AND "), args
}
