package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrListNameTaken is returned when creating or renaming a list to a
	// name that already exists. It is user-reportable, not a bug.
	ErrListNameTaken = errors.New("storage: list name already exists")

	// ErrListNotFound is returned for operations on an unknown list ID.
	ErrListNotFound = errors.New("storage: list not found")
)

// List is a user-defined collection of works.
type List struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListBook is one entry of a list. Author, CoverID and FirstPublishYear
// are optional.
type ListBook struct {
	WorkKey          string    `json:"work_key"`
	Title            string    `json:"title"`
	Author           string    `json:"author,omitempty"`
	CoverID          *int64    `json:"cover_id,omitempty"`
	FirstPublishYear *int64    `json:"first_publish_year,omitempty"`
	AddedAt          time.Time `json:"added_at"`
}

// AddOutcome is the result of AddBookToList. Membership is a set:
// inserting an existing member reports Duplicate, never an error.
type AddOutcome int

const (
	Added AddOutcome = iota
	Duplicate
)

// Lists returns all lists ordered by creation time ascending.
func (s *Store) Lists(ctx context.Context) ([]List, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at FROM custom_lists ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	var lists []List
	for rows.Next() {
		var l List
		var createdAt int64
		if err := rows.Scan(&l.ID, &l.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		l.CreatedAt = time.UnixMilli(createdAt)
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// CreateList creates a list with the trimmed name and returns its ID.
// A name collision returns ErrListNameTaken.
func (s *Store) CreateList(ctx context.Context, name string) (int64, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO custom_lists (name, created_at) VALUES (?, ?)`,
		strings.TrimSpace(name), s.nowMillis())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrListNameTaken
		}
		return 0, fmt.Errorf("create list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create list id: %w", err)
	}
	return id, nil
}

// RenameList changes a list's name. The timestamp is not a freshness
// marker for lists, so it is left alone.
func (s *Store) RenameList(ctx context.Context, id int64, name string) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	res, err := db.ExecContext(ctx,
		`UPDATE custom_lists SET name = ? WHERE id = ?`, strings.TrimSpace(name), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrListNameTaken
		}
		return fmt.Errorf("rename list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename list: %w", err)
	}
	if n == 0 {
		return ErrListNotFound
	}
	return nil
}

// DeleteList removes a list and, via the foreign key cascade, all of
// its books.
func (s *Store) DeleteList(ctx context.Context, id int64) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	res, err := db.ExecContext(ctx, `DELETE FROM custom_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	if n == 0 {
		return ErrListNotFound
	}
	return nil
}

// ListBooks returns a list's books ordered by add time descending.
func (s *Store) ListBooks(ctx context.Context, listID int64) ([]ListBook, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	rows, err := db.QueryContext(ctx, `
	SELECT work_key, title, author, cover_id, first_publish_year, added_at
	FROM list_books WHERE list_id = ? ORDER BY added_at DESC, id DESC`, listID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []ListBook
	for rows.Next() {
		var b ListBook
		var author sql.NullString
		var coverID, year sql.NullInt64
		var addedAt int64
		if err := rows.Scan(&b.WorkKey, &b.Title, &author, &coverID, &year, &addedAt); err != nil {
			return nil, fmt.Errorf("scan list book: %w", err)
		}
		b.Author = author.String
		if coverID.Valid {
			b.CoverID = &coverID.Int64
		}
		if year.Valid {
			b.FirstPublishYear = &year.Int64
		}
		b.AddedAt = time.UnixMilli(addedAt)
		books = append(books, b)
	}
	return books, rows.Err()
}

// AddBookToList adds a book to a list. It checks membership first; if a
// concurrent writer slips in between the check and the insert, the
// UNIQUE violation is reported as Duplicate rather than an error.
func (s *Store) AddBookToList(ctx context.Context, listID int64, book ListBook) (AddOutcome, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return Duplicate, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	member, err := s.InList(ctx, listID, book.WorkKey)
	if err != nil {
		return Duplicate, err
	}
	if member {
		return Duplicate, nil
	}

	var author sql.NullString
	if book.Author != "" {
		author = sql.NullString{String: book.Author, Valid: true}
	}
	var coverID, year sql.NullInt64
	if book.CoverID != nil {
		coverID = sql.NullInt64{Int64: *book.CoverID, Valid: true}
	}
	if book.FirstPublishYear != nil {
		year = sql.NullInt64{Int64: *book.FirstPublishYear, Valid: true}
	}

	_, err = db.ExecContext(ctx, `
	INSERT INTO list_books (list_id, work_key, title, author, cover_id, first_publish_year, added_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		listID, book.WorkKey, book.Title, author, coverID, year, s.nowMillis())
	if err != nil {
		if isUniqueViolation(err) {
			return Duplicate, nil
		}
		if isForeignKeyViolation(err) {
			return Duplicate, ErrListNotFound
		}
		return Duplicate, fmt.Errorf("add book to list: %w", err)
	}
	return Added, nil
}

// RemoveBookFromList removes a book from a list. Removing a non-member
// is a no-op.
func (s *Store) RemoveBookFromList(ctx context.Context, listID int64, workKey string) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	if _, err := db.ExecContext(ctx,
		`DELETE FROM list_books WHERE list_id = ? AND work_key = ?`, listID, workKey); err != nil {
		return fmt.Errorf("remove book from list: %w", err)
	}
	return nil
}

// InList reports whether workKey is a member of the list.
func (s *Store) InList(ctx context.Context, listID int64, workKey string) (bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM list_books WHERE list_id = ? AND work_key = ?`,
		listID, workKey,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}
