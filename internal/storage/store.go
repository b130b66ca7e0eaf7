package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrNotInitialized is returned by data operations when the store could
// not be opened. Callers on cache paths treat it like a miss and log it.
var ErrNotInitialized = errors.New("storage: store not initialized")

// Store wraps all cached record families behind a single SQLite handle.
// Opening the database is lazy: the first operation (or an explicit Init)
// opens it, applies the schema, and memoizes the handle. Concurrent
// callers arriving during an in-flight open wait for that same attempt;
// a failed attempt is cleared so a later call can retry.
type Store struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	db      *sql.DB
	attempt *initAttempt
}

// initAttempt is one in-flight open; everyone who arrives while it runs
// waits on done and observes the same db/err pair.
type initAttempt struct {
	done chan struct{}
	db   *sql.DB
	err  error
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source. Tests use this to control
// freshness windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store for the database at path. Use ":memory:" for an
// ephemeral store. No I/O happens until Init or the first operation.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens the database and applies the schema. Calling it again after
// success is a no-op; calling it after a failure retries from scratch.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.ensure(ctx)
	return err
}

// ensure returns the open handle, triggering the single-flight open if
// needed.
func (s *Store) ensure(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	if s.db != nil {
		db := s.db
		s.mu.Unlock()
		return db, nil
	}
	if s.attempt != nil {
		a := s.attempt
		s.mu.Unlock()
		select {
		case <-a.done:
			return a.db, a.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a := &initAttempt{done: make(chan struct{})}
	s.attempt = a
	s.mu.Unlock()

	a.db, a.err = open(s.path)

	s.mu.Lock()
	if a.err == nil {
		s.db = a.db
	}
	s.attempt = nil
	s.mu.Unlock()
	close(a.done)

	if a.err != nil {
		return nil, a.err
	}
	return a.db, nil
}

// open opens the SQLite database and initializes the schema.
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: concurrent callers interleave through its own
	// serialization, and an in-memory database stays a single database.
	db.SetMaxOpenConns(1)

	// Enable foreign keys so list deletion cascades to its books, and
	// WAL mode for better concurrency on real files.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// schema creates all record families if absent. Keys, uniqueness
// constraints, and the timestamp columns are the persisted-state
// contract; changing them breaks cache portability.
const schema = `
CREATE TABLE IF NOT EXISTS cached_books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	genre TEXT NOT NULL,
	page INTEGER NOT NULL,
	payload TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE(genre, page)
);

CREATE TABLE IF NOT EXISTS cached_details (
	work_key TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cached_searches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	page INTEGER NOT NULL,
	data TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE(query, page)
);

CREATE TABLE IF NOT EXISTS cached_covers (
	cover_id INTEGER PRIMARY KEY,
	image_base64 TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_lists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS list_books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	list_id INTEGER NOT NULL,
	work_key TEXT NOT NULL,
	title TEXT NOT NULL,
	author TEXT,
	cover_id INTEGER,
	first_publish_year INTEGER,
	added_at INTEGER NOT NULL,
	UNIQUE(list_id, work_key),
	FOREIGN KEY (list_id) REFERENCES custom_lists(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cached_books_genre ON cached_books(genre);
CREATE INDEX IF NOT EXISTS idx_cached_searches_created ON cached_searches(created_at);
CREATE INDEX IF NOT EXISTS idx_list_books_list ON list_books(list_id);
`

// Close closes the database if it was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// nowMillis is the write-time clock for updated_at / created_at columns.
func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint
// failure.
func isForeignKeyViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
