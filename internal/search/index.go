// Package search maintains a full-text index over cached work details
// so free-text search keeps working offline.
package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/FabianFlo/bookapp/internal/storage"
)

// Index wraps a Bleve search index over cached details.
type Index struct {
	index bleve.Index
	store *storage.Store
}

// IndexedWork is a work detail as stored in the search index.
type IndexedWork struct {
	WorkKey  string
	Title    string
	Authors  []string
	Subjects []string
}

// Result is one search hit.
type Result struct {
	WorkKey   string              `json:"work_key"`
	Title     string              `json:"title"`
	Authors   []string            `json:"authors,omitempty"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Open opens or creates a Bleve index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

// InMemory creates an ephemeral index. Tests use this.
func InMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("WorkKey", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Authors", textFieldMapping)
	docMapping.AddFieldMappingsAt("Subjects", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// SetStore attaches the cache store Rebuild reads from.
func (i *Index) SetStore(store *storage.Store) {
	i.store = store
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexDetail adds or updates one cached detail payload in the index.
func (i *Index) IndexDetail(workKey, payload string) error {
	work, err := parseDetail(workKey, payload)
	if err != nil {
		return err
	}
	return i.index.Index(workKey, work)
}

// Delete removes a work from the index.
func (i *Index) Delete(workKey string) error {
	return i.index.Delete(workKey)
}

// Rebuild reindexes every cached detail in one batch.
func (i *Index) Rebuild(ctx context.Context) error {
	if i.store == nil {
		return fmt.Errorf("rebuild: no store attached")
	}
	details, err := i.store.AllDetails(ctx)
	if err != nil {
		return fmt.Errorf("list details: %w", err)
	}

	batch := i.index.NewBatch()
	for workKey, payload := range details {
		work, err := parseDetail(workKey, payload)
		if err != nil {
			// Unparseable payloads stay out of the index.
			continue
		}
		if err := batch.Index(workKey, work); err != nil {
			return fmt.Errorf("batch index %s: %w", workKey, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// parseDetail extracts the indexable fields from a bundled detail
// payload: {"work": {...}, "authorNames": [...], "subjects": [...]}.
func parseDetail(workKey, payload string) (*IndexedWork, error) {
	var bundle struct {
		Work struct {
			Title string `json:"title"`
		} `json:"work"`
		AuthorNames []string `json:"authorNames"`
		Subjects    []string `json:"subjects"`
	}
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		return nil, fmt.Errorf("parse detail %s: %w", workKey, err)
	}
	return &IndexedWork{
		WorkKey:  workKey,
		Title:    bundle.Work.Title,
		Authors:  bundle.AuthorNames,
		Subjects: bundle.Subjects,
	}, nil
}

// Search runs a query-string search with highlighting.
func (i *Index) Search(queryStr string, limit int) ([]*Result, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Title", "Authors"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var hits []*Result
	for _, hit := range results.Hits {
		result := &Result{
			WorkKey:   hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		switch authors := hit.Fields["Authors"].(type) {
		case string:
			result.Authors = []string{authors}
		case []any:
			for _, a := range authors {
				if s, ok := a.(string); ok {
					result.Authors = append(result.Authors, s)
				}
			}
		}
		hits = append(hits, result)
	}
	return hits, nil
}

// Count returns the number of indexed works.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
