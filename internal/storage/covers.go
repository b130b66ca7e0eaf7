package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertCover stores base64-encoded image data for a cover ID.
func (s *Store) UpsertCover(ctx context.Context, coverID int64, imageBase64 string) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	query := `
	INSERT INTO cached_covers (cover_id, image_base64, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(cover_id) DO UPDATE SET
		image_base64 = excluded.image_base64,
		updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, coverID, imageBase64, s.nowMillis()); err != nil {
		return fmt.Errorf("upsert cover: %w", err)
	}
	return nil
}

// Cover returns the cached image data for coverID, or ok=false on a miss.
func (s *Store) Cover(ctx context.Context, coverID int64) (string, bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var data string
	err = db.QueryRowContext(ctx,
		`SELECT image_base64 FROM cached_covers WHERE cover_id = ? LIMIT 1`, coverID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cover: %w", err)
	}
	return data, true, nil
}
