package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertDetail stores the bundled detail payload for a work, replacing
// any previous payload and refreshing its timestamp.
func (s *Store) UpsertDetail(ctx context.Context, workKey, payload string) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	query := `
	INSERT INTO cached_details (work_key, payload, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(work_key) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, workKey, payload, s.nowMillis()); err != nil {
		return fmt.Errorf("upsert detail: %w", err)
	}
	return nil
}

// Detail returns the cached detail payload for workKey, or ok=false on
// a miss.
func (s *Store) Detail(ctx context.Context, workKey string) (string, bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var payload string
	err = db.QueryRowContext(ctx,
		`SELECT payload FROM cached_details WHERE work_key = ? LIMIT 1`, workKey,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get detail: %w", err)
	}
	return payload, true, nil
}

// IsDetailFresh reports whether the detail for workKey was written
// within maxAge of now. A missing record is never fresh.
func (s *Store) IsDetailFresh(ctx context.Context, workKey string, maxAge time.Duration) (bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var updatedAt int64
	err = db.QueryRowContext(ctx,
		`SELECT updated_at FROM cached_details WHERE work_key = ? LIMIT 1`, workKey,
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get detail age: %w", err)
	}
	return s.nowMillis()-updatedAt <= maxAge.Milliseconds(), nil
}

// AllDetails returns every cached detail keyed by work key. The offline
// search index rebuilds from this.
func (s *Store) AllDetails(ctx context.Context) (map[string]string, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT work_key, payload FROM cached_details`)
	if err != nil {
		return nil, fmt.Errorf("list details: %w", err)
	}
	defer rows.Close()

	details := make(map[string]string)
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		details[key] = payload
	}
	return details, rows.Err()
}
