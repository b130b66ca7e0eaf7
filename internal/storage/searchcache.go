package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// normalizeQuery folds a search query into its cache-key form.
func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// UpsertSearchResults stores the serialized item array for a search
// results page. The query is normalized before keying so "Fiction " and
// "fiction" share a record.
func (s *Store) UpsertSearchResults(ctx context.Context, query string, page int, data string) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	q := `
	INSERT INTO cached_searches (query, page, data, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(query, page) DO UPDATE SET
		data = excluded.data,
		created_at = excluded.created_at
	`
	if _, err := db.ExecContext(ctx, q, normalizeQuery(query), page, data, s.nowMillis()); err != nil {
		return fmt.Errorf("upsert search results: %w", err)
	}
	return nil
}

// SearchResults returns the cached item array for (query, page), or
// ok=false on a miss.
func (s *Store) SearchResults(ctx context.Context, query string, page int) (string, bool, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var data string
	err = db.QueryRowContext(ctx,
		`SELECT data FROM cached_searches WHERE query = ? AND page = ? LIMIT 1`,
		normalizeQuery(query), page,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get search results: %w", err)
	}
	return data, true, nil
}

// SearchSimilarOffline scans every cached search page whose stored
// query contains fragment as a substring and returns the flattened
// items, deduplicated by item key. Pages are visited most recent first,
// so the newest copy of a duplicated item wins. Returns an empty slice
// when nothing matches.
func (s *Store) SearchSimilarOffline(ctx context.Context, fragment string) ([]map[string]any, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT query, data FROM cached_searches ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("scan search cache: %w", err)
	}
	defer rows.Close()

	frag := normalizeQuery(fragment)
	seen := make(map[string]bool)
	items := []map[string]any{}

	for rows.Next() {
		var query, data string
		if err := rows.Scan(&query, &data); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if !strings.Contains(query, frag) {
			continue
		}

		var pageItems []map[string]any
		if err := json.Unmarshal([]byte(data), &pageItems); err != nil {
			// Skip unparseable payloads rather than failing the scan.
			continue
		}
		for _, item := range pageItems {
			key, _ := item["key"].(string)
			if key != "" {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			items = append(items, item)
		}
	}
	return items, rows.Err()
}
