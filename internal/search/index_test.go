package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FabianFlo/bookapp/internal/storage"
)

const duneDetail = `{
	"work": {"title": "Dune", "description": "Desert planet"},
	"authorNames": ["Frank Herbert"],
	"subjects": ["Science fiction", "Sand"]
}`

const hyperionDetail = `{
	"work": {"title": "Hyperion"},
	"authorNames": ["Dan Simmons"],
	"subjects": ["Science fiction"]
}`

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := InMemory()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexAndSearchByTitle(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexDetail("/works/OL1W", duneDetail))
	require.NoError(t, idx.IndexDetail("/works/OL2W", hyperionDetail))

	hits, err := idx.Search("dune", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/works/OL1W", hits[0].WorkKey)
	assert.Equal(t, "Dune", hits[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, hits[0].Authors)
}

func TestSearchByAuthor(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexDetail("/works/OL2W", hyperionDetail))

	hits, err := idx.Search("simmons", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/works/OL2W", hits[0].WorkKey)
}

func TestIndexDetailRejectsBadPayload(t *testing.T) {
	idx := newTestIndex(t)
	assert.Error(t, idx.IndexDetail("/works/OL1W", "not json"))
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.IndexDetail("/works/OL1W", duneDetail))
	require.NoError(t, idx.Delete("/works/OL1W"))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRebuildFromStore(t *testing.T) {
	ctx := context.Background()
	store := storage.New(":memory:")
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.UpsertDetail(ctx, "/works/OL1W", duneDetail))
	require.NoError(t, store.UpsertDetail(ctx, "/works/OL2W", hyperionDetail))
	require.NoError(t, store.UpsertDetail(ctx, "/works/OL3W", "broken payload"))

	idx := newTestIndex(t)
	idx.SetStore(store)
	require.NoError(t, idx.Rebuild(ctx))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	hits, err := idx.Search("science", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRebuildRequiresStore(t *testing.T) {
	idx := newTestIndex(t)
	assert.Error(t, idx.Rebuild(context.Background()))
}
