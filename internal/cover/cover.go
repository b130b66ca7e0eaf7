// Package cover resolves cover IDs to displayable image data,
// cache-first with a bounded network fallback.
package cover

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Placeholder is returned whenever no real image can be produced.
const Placeholder = "assets/no-cover.png"

const (
	defaultBaseURL = "https://covers.openlibrary.org"
	fetchTimeout   = 6000 * time.Millisecond
	minImageBytes  = 500
)

// Store is the cover cache the resolver reads and writes.
type Store interface {
	Cover(ctx context.Context, coverID int64) (string, bool, error)
	UpsertCover(ctx context.Context, coverID int64, imageBase64 string) error
}

// Connectivity reports whether the network is reachable.
type Connectivity interface {
	Online() bool
}

// Resolver turns an optional cover ID into image data or the
// placeholder. It never returns an error.
type Resolver struct {
	store   Store
	net     Connectivity
	baseURL string
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// NewResolver creates a Resolver. An empty baseURL uses the OpenLibrary
// covers origin.
func NewResolver(store Store, net Connectivity, baseURL string, log *slog.Logger) *Resolver {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:   store,
		net:     net,
		baseURL: baseURL,
		client:  &http.Client{},
		timeout: fetchTimeout,
		log:     log,
	}
}

// Resolve returns image data for coverID, consulting the cache first and
// falling back to a bounded network fetch. Every failure path yields the
// placeholder; a successful fetch is persisted best-effort.
func (r *Resolver) Resolve(ctx context.Context, coverID *int64) string {
	if coverID == nil || *coverID == 0 {
		return Placeholder
	}
	id := *coverID

	// Cache first, even when offline.
	if cached, ok, err := r.store.Cover(ctx, id); err == nil && ok {
		return cached
	}

	if !r.net.Online() {
		return Placeholder
	}

	data, err := r.fetch(ctx, id)
	if err != nil {
		r.log.Warn("cover fetch failed", "cover_id", id, "error", err)
		return Placeholder
	}

	if err := r.store.UpsertCover(ctx, id, data); err != nil {
		// A cache write failure must not fail the resolution.
		r.log.Warn("cover cache write failed", "cover_id", id, "error", err)
	}
	return data
}

// fetch downloads and validates the medium-size cover image, returning
// it as a base64 data URL.
func (r *Resolver) fetch(ctx context.Context, coverID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/b/id/%d-M.jpg", r.baseURL, coverID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return "", fmt.Errorf("not an image: content-type %q", contentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	// The origin serves a tiny blank image for unknown IDs.
	if len(body) < minImageBytes {
		return "", fmt.Errorf("image too small: %d bytes", len(body))
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}
