package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateListTrimsAndRejectsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateList(ctx, "  Favorites ")
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	_, err = s.CreateList(ctx, "Favorites")
	assert.ErrorIs(t, err, ErrListNameTaken)

	lists, err := s.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "Favorites", lists[0].Name)
}

func TestListsOrderedByCreation(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, WithClock(clk.Now))
	ctx := context.Background()

	_, err := s.CreateList(ctx, "first")
	require.NoError(t, err)
	clk.Advance(time.Second)
	_, err = s.CreateList(ctx, "second")
	require.NoError(t, err)
	clk.Advance(time.Second)
	_, err = s.CreateList(ctx, "third")
	require.NoError(t, err)

	lists, err := s.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{lists[0].Name, lists[1].Name, lists[2].Name})
}

func TestRenameList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateList(ctx, "old")
	require.NoError(t, err)
	_, err = s.CreateList(ctx, "taken")
	require.NoError(t, err)

	require.NoError(t, s.RenameList(ctx, id, "new"))
	assert.ErrorIs(t, s.RenameList(ctx, id, "taken"), ErrListNameTaken)
	assert.ErrorIs(t, s.RenameList(ctx, 9999, "ghost"), ErrListNotFound)
}

func TestDeleteListCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateList(ctx, "to-delete")
	require.NoError(t, err)

	_, err = s.AddBookToList(ctx, id, ListBook{WorkKey: "/works/OL1W", Title: "One"})
	require.NoError(t, err)
	_, err = s.AddBookToList(ctx, id, ListBook{WorkKey: "/works/OL2W", Title: "Two"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteList(ctx, id))
	assert.ErrorIs(t, s.DeleteList(ctx, id), ErrListNotFound)

	stats, err := s.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CustomLists)
	assert.Equal(t, 0, stats.ListBookCount, "entries must not outlive their list")
}

func TestAddBookToListOutcomes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateList(ctx, "reading")
	require.NoError(t, err)

	coverID := int64(42)
	year := int64(1965)
	book := ListBook{
		WorkKey:          "/works/OL1W",
		Title:            "Dune",
		Author:           "Frank Herbert",
		CoverID:          &coverID,
		FirstPublishYear: &year,
	}

	outcome, err := s.AddBookToList(ctx, id, book)
	require.NoError(t, err)
	assert.Equal(t, Added, outcome)

	outcome, err = s.AddBookToList(ctx, id, book)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, outcome)

	books, err := s.ListBooks(ctx, id)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Frank Herbert", books[0].Author)
	require.NotNil(t, books[0].CoverID)
	assert.Equal(t, int64(42), *books[0].CoverID)
	require.NotNil(t, books[0].FirstPublishYear)
	assert.Equal(t, int64(1965), *books[0].FirstPublishYear)
}

func TestAddBookToListConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateList(ctx, "raced")
	require.NoError(t, err)

	const callers = 8
	outcomes := make(chan AddOutcome, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.AddBookToList(ctx, id, ListBook{WorkKey: "/works/OL1W", Title: "Dune"})
			assert.NoError(t, err)
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	added := 0
	for outcome := range outcomes {
		if outcome == Added {
			added++
		}
	}
	assert.Equal(t, 1, added, "exactly one caller wins the insert")

	books, err := s.ListBooks(ctx, id)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestListBooksOrderedByAddTimeDesc(t *testing.T) {
	clk := newFakeClock()
	s := newTestStore(t, WithClock(clk.Now))
	ctx := context.Background()

	id, err := s.CreateList(ctx, "ordered")
	require.NoError(t, err)

	for _, key := range []string{"/works/OL1W", "/works/OL2W", "/works/OL3W"} {
		_, err := s.AddBookToList(ctx, id, ListBook{WorkKey: key, Title: key})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}

	books, err := s.ListBooks(ctx, id)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "/works/OL3W", books[0].WorkKey, "newest first")
	assert.Equal(t, "/works/OL1W", books[2].WorkKey)
}

func TestRemoveBookAndMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateList(ctx, "m")
	require.NoError(t, err)

	member, err := s.InList(ctx, id, "/works/OL1W")
	require.NoError(t, err)
	assert.False(t, member)

	_, err = s.AddBookToList(ctx, id, ListBook{WorkKey: "/works/OL1W", Title: "One"})
	require.NoError(t, err)

	member, err = s.InList(ctx, id, "/works/OL1W")
	require.NoError(t, err)
	assert.True(t, member)

	require.NoError(t, s.RemoveBookFromList(ctx, id, "/works/OL1W"))
	// Removing again is a no-op.
	require.NoError(t, s.RemoveBookFromList(ctx, id, "/works/OL1W"))

	member, err = s.InList(ctx, id, "/works/OL1W")
	require.NoError(t, err)
	assert.False(t, member)
}

func TestAddBookToUnknownList(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddBookToList(context.Background(), 9999,
		ListBook{WorkKey: "/works/OL1W", Title: "Ghost"})
	assert.ErrorIs(t, err, ErrListNotFound)
}
