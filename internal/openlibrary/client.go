package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://openlibrary.org"

// Client is an OpenLibrary API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an OpenLibrary client. An empty baseURL uses the
// public API; tests point it at a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// get performs a GET request and parses the JSON response into a Document.
func (c *Client) get(ctx context.Context, path string, query url.Values) (Document, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return Document{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("read response: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return Document{}, fmt.Errorf("unmarshal response: %w", err)
	}

	return Document{Raw: body, Data: data}, nil
}

// SubjectPage fetches one page of a subject (genre) listing.
func (c *Client) SubjectPage(ctx context.Context, subject string, limit, offset int) (Document, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	doc, err := c.get(ctx, "/subjects/"+url.PathEscape(subject)+".json", query)
	if err != nil {
		return Document{}, fmt.Errorf("get subject %s: %w", subject, err)
	}
	return doc, nil
}

// WorkDetail fetches the detail document for a work key of the form
// "/works/OL...W".
func (c *Client) WorkDetail(ctx context.Context, workKey string) (Document, error) {
	doc, err := c.get(ctx, workKey+".json", nil)
	if err != nil {
		return Document{}, fmt.Errorf("get work %s: %w", workKey, err)
	}
	return doc, nil
}

// AuthorName resolves an author key of the form "/authors/OL...A" to the
// author's display name.
func (c *Client) AuthorName(ctx context.Context, authorKey string) (string, error) {
	doc, err := c.get(ctx, authorKey+".json", nil)
	if err != nil {
		return "", fmt.Errorf("get author %s: %w", authorKey, err)
	}
	name, _ := doc.Data["name"].(string)
	if name == "" {
		return "", fmt.Errorf("author %s: response has no name", authorKey)
	}
	return name, nil
}

// Search runs a free-text search and returns the response document.
func (c *Client) Search(ctx context.Context, q string, page int) (Document, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("page", strconv.Itoa(page))

	doc, err := c.get(ctx, "/search.json", query)
	if err != nil {
		return Document{}, fmt.Errorf("search %q: %w", q, err)
	}
	return doc, nil
}
