package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubjectPage(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/subjects/fiction.json": `{"name":"fiction","works":[{"key":"/works/OL1W"}],"work_count":823}`,
	})
	c := NewClient(srv.URL)

	doc, err := c.SubjectPage(context.Background(), "fiction", 20, 0)
	require.NoError(t, err)
	assert.Contains(t, string(doc.Raw), "work_count")
	require.Len(t, doc.Items(), 1)
}

func TestWorkDetail(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/works/OL1W.json": `{"title":"Dune","subjects":["Sand"]}`,
	})
	c := NewClient(srv.URL)

	doc, err := c.WorkDetail(context.Background(), "/works/OL1W")
	require.NoError(t, err)
	assert.Equal(t, "Dune", doc.Data["title"])
}

func TestAuthorName(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/authors/OL1A.json": `{"name":"Frank Herbert"}`,
		"/authors/OL2A.json": `{"bio":"no name field"}`,
	})
	c := NewClient(srv.URL)

	name, err := c.AuthorName(context.Background(), "/authors/OL1A")
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", name)

	_, err = c.AuthorName(context.Background(), "/authors/OL2A")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/search.json": `{"docs":[{"key":"/works/OL1W","title":"Dune"}],"numFound":1}`,
	})
	c := NewClient(srv.URL)

	doc, err := c.Search(context.Background(), "dune", 1)
	require.NoError(t, err)
	require.Len(t, doc.Items(), 1)
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(srv.URL)

	_, err := c.SubjectPage(context.Background(), "fiction", 20, 0)
	assert.Error(t, err)
}

func TestDocumentItems(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"works", `{"works":[{},{}]}`, 2},
		{"entries", `{"entries":[{}]}`, 1},
		{"docs", `{"docs":[{},{},{}]}`, 3},
		{"items", `{"items":[{}]}`, 1},
		{"none", `{"count":0}`, 0},
		{"not an array", `{"works":"oops"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.raw))
			require.NoError(t, err)
			assert.Len(t, doc.Items(), tt.want)
		})
	}
}
