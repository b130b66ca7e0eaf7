package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertBookPage stores one page of a genre listing, replacing any
// previous payload for the same (genre, page) and refreshing its
// timestamp.
func (s *Store) UpsertBookPage(ctx context.Context, genre string, page int, payload string) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	query := `
	INSERT INTO cached_books (genre, page, payload, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(genre, page) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, genre, page, payload, s.nowMillis()); err != nil {
		return fmt.Errorf("upsert book page: %w", err)
	}
	return nil
}

// BookPage returns the cached payload for (genre, page), or ok=false on
// a miss.
func (s *Store) BookPage(ctx context.Context, genre string, page int) (string, bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var payload string
	err = db.QueryRowContext(ctx,
		`SELECT payload FROM cached_books WHERE genre = ? AND page = ? LIMIT 1`,
		genre, page,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get book page: %w", err)
	}
	return payload, true, nil
}

// HasAnyPageForGenre reports whether at least one page of the genre is
// cached, regardless of freshness.
func (s *Store) HasAnyPageForGenre(ctx context.Context, genre string) (bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM cached_books WHERE genre = ?`, genre,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count genre pages: %w", err)
	}
	return count > 0, nil
}

// IsBookPageFresh reports whether (genre, page) was written within
// maxAge of now. A missing record is never fresh.
func (s *Store) IsBookPageFresh(ctx context.Context, genre string, page int, maxAge time.Duration) (bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var updatedAt int64
	err = db.QueryRowContext(ctx,
		`SELECT updated_at FROM cached_books WHERE genre = ? AND page = ? LIMIT 1`,
		genre, page,
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get book page age: %w", err)
	}
	return s.nowMillis()-updatedAt <= maxAge.Milliseconds(), nil
}
