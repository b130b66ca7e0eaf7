package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a controllable timestamp source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(":memory:", opts...)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitIdempotent(t *testing.T) {
	s := New(":memory:")
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))

	// The handle is usable after repeated Init.
	require.NoError(t, s.UpsertBookPage(ctx, "fiction", 1, `{}`))
}

func TestInitConcurrent(t *testing.T) {
	s := New(":memory:")
	defer s.Close()

	const callers = 16
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Init(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestInitFailureRetries(t *testing.T) {
	// Point the store at a database inside a directory that does not
	// exist yet; the first attempt fails, a later one succeeds after
	// the directory appears.
	dir := filepath.Join(t.TempDir(), "missing")
	s := New(filepath.Join(dir, "bookapp.db"))
	defer s.Close()

	ctx := context.Background()
	require.Error(t, s.Init(ctx))

	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.UpsertBookPage(ctx, "fiction", 1, `{}`))
}

func TestOperationsDegradeWhenUninitializable(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing", "bookapp.db"))
	defer s.Close()

	ctx := context.Background()

	payload, ok, err := s.BookPage(ctx, "fiction", 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, ok)
	assert.Empty(t, payload)

	fresh, err := s.IsBookPageFresh(ctx, "fiction", 1, time.Hour)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, fresh)

	err = s.UpsertBookPage(ctx, "fiction", 1, `{}`)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestCacheStats(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, WithClock(clk.Now))
	ctx := context.Background()

	require.NoError(t, s.UpsertBookPage(ctx, "fiction", 1, `{}`))
	require.NoError(t, s.UpsertBookPage(ctx, "fiction", 2, `{}`))
	require.NoError(t, s.UpsertDetail(ctx, "/works/OL1W", `{}`))
	require.NoError(t, s.UpsertCover(ctx, 42, "data:image/jpeg;base64,xxxx"))

	stats, err := s.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.BookPages)
	assert.Equal(t, 1, stats.Details)
	assert.Equal(t, 1, stats.Covers)
	assert.Equal(t, 0, stats.SearchPages)
}
