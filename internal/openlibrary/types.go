package openlibrary

import "encoding/json"

// Document is an opaque OpenLibrary JSON document. Raw preserves the
// exact response bytes so the cache can store payloads as-is; Data is
// the parsed form for tolerant field access.
type Document struct {
	Raw  []byte
	Data map[string]any
}

// ParseDocument rebuilds a Document from cached payload bytes.
func ParseDocument(raw []byte) (Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, err
	}
	return Document{Raw: raw, Data: data}, nil
}

// Items returns the document's item array under whichever conventional
// field name it uses. Subject pages use "works", reading-log shapes use
// "entries", search responses use "docs", and some proxies use "items".
// Returns nil when no recognized field holds an array.
func (d Document) Items() []any {
	for _, field := range []string{"works", "entries", "docs", "items"} {
		if list, ok := d.Data[field].([]any); ok {
			return list
		}
	}
	return nil
}
