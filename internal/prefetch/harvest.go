package prefetch

import (
	"strings"

	"github.com/FabianFlo/bookapp/internal/openlibrary"
)

// harvestWorkKeys pulls work keys out of a listing document without
// assuming a fixed schema. Items may carry the key as "work_key" or
// "key"; anything not shaped like "/works/..." is ignored.
func harvestWorkKeys(doc openlibrary.Document) []string {
	var keys []string
	for _, item := range doc.Items() {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, _ := m["work_key"].(string)
		if key == "" {
			key, _ = m["key"].(string)
		}
		if strings.Contains(key, "/works/") {
			keys = append(keys, key)
		}
	}
	return keys
}

// harvestAuthorKeys pulls author keys from a work detail document.
// Authors come as [{"author": {"key": "/authors/..."}}, ...].
func harvestAuthorKeys(work openlibrary.Document) []string {
	authors, ok := work.Data["authors"].([]any)
	if !ok {
		return nil
	}
	var keys []string
	for _, entry := range authors {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		author, ok := m["author"].(map[string]any)
		if !ok {
			continue
		}
		if key, _ := author["key"].(string); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// harvestSubjects returns up to max subject strings from a work detail.
func harvestSubjects(work openlibrary.Document, max int) []string {
	raw, ok := work.Data["subjects"].([]any)
	if !ok {
		return []string{}
	}
	subjects := []string{}
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			subjects = append(subjects, s)
			if len(subjects) == max {
				break
			}
		}
	}
	return subjects
}
