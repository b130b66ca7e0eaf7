package prefetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FabianFlo/bookapp/internal/openlibrary"
)

func parseDoc(t *testing.T, raw string) openlibrary.Document {
	t.Helper()
	doc, err := openlibrary.ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestHarvestWorkKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "works field",
			raw:  `{"works":[{"key":"/works/OL1W"},{"key":"/works/OL2W"}]}`,
			want: []string{"/works/OL1W", "/works/OL2W"},
		},
		{
			name: "entries field",
			raw:  `{"entries":[{"key":"/works/OL3W"}]}`,
			want: []string{"/works/OL3W"},
		},
		{
			name: "docs field",
			raw:  `{"docs":[{"key":"/works/OL4W"}]}`,
			want: []string{"/works/OL4W"},
		},
		{
			name: "items field",
			raw:  `{"items":[{"key":"/works/OL5W"}]}`,
			want: []string{"/works/OL5W"},
		},
		{
			name: "work_key takes precedence",
			raw:  `{"works":[{"work_key":"/works/OL6W","key":"/books/OL6M"}]}`,
			want: []string{"/works/OL6W"},
		},
		{
			name: "non-work keys are ignored",
			raw:  `{"works":[{"key":"/authors/OL1A"},{"key":"/works/OL7W"}]}`,
			want: []string{"/works/OL7W"},
		},
		{
			name: "no recognized list field",
			raw:  `{"total":12}`,
			want: nil,
		},
		{
			name: "malformed items are skipped",
			raw:  `{"works":["just a string",{"key":42},{"key":"/works/OL8W"}]}`,
			want: []string{"/works/OL8W"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, harvestWorkKeys(parseDoc(t, tt.raw)))
		})
	}
}

func TestHarvestAuthorKeys(t *testing.T) {
	doc := parseDoc(t, `{"authors":[
		{"author":{"key":"/authors/OL1A"}},
		{"author":{}},
		{"type":{"key":"/type/author_role"}},
		{"author":{"key":"/authors/OL2A"}}
	]}`)
	assert.Equal(t, []string{"/authors/OL1A", "/authors/OL2A"}, harvestAuthorKeys(doc))

	assert.Nil(t, harvestAuthorKeys(parseDoc(t, `{"title":"no authors"}`)))
}

func TestHarvestSubjects(t *testing.T) {
	doc := parseDoc(t, `{"subjects":["a","b",3,"c"]}`)
	assert.Equal(t, []string{"a", "b", "c"}, harvestSubjects(doc, 8))
	assert.Equal(t, []string{"a", "b"}, harvestSubjects(doc, 2))
	assert.Empty(t, harvestSubjects(parseDoc(t, `{}`), 8))
}
