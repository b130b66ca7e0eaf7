package storage

import (
	"context"
	"fmt"
)

// Stats summarizes what the cache currently holds.
type Stats struct {
	BookPages     int
	Details       int
	SearchPages   int
	Covers        int
	CustomLists   int
	ListBookCount int
}

// CacheStats counts the records in each family.
func (s *Store) CacheStats(ctx context.Context) (Stats, error) {
	db, err := s.ensure(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}

	var stats Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"cached_books", &stats.BookPages},
		{"cached_details", &stats.Details},
		{"cached_searches", &stats.SearchPages},
		{"cached_covers", &stats.Covers},
		{"custom_lists", &stats.CustomLists},
		{"list_books", &stats.ListBookCount},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return stats, nil
}
