// Package prefetch warms the cache for a fixed catalog slice in the
// background: listing pages sequentially, then work details through a
// small worker pool.
package prefetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FabianFlo/bookapp/internal/openlibrary"
	"github.com/FabianFlo/bookapp/internal/storage"
)

// Catalog is the remote API surface the preloader consumes.
type Catalog interface {
	SubjectPage(ctx context.Context, subject string, limit, offset int) (openlibrary.Document, error)
	WorkDetail(ctx context.Context, workKey string) (openlibrary.Document, error)
	AuthorResolver
}

// AuthorResolver resolves author keys to display names.
type AuthorResolver interface {
	AuthorName(ctx context.Context, authorKey string) (string, error)
}

// Connectivity reports whether the network is reachable.
type Connectivity interface {
	Online() bool
}

// Indexer rebuilds the offline search index after a successful run.
type Indexer interface {
	Rebuild(ctx context.Context) error
}

// Config fixes the catalog slice a run covers.
type Config struct {
	Genres            []string
	PagesPerGenre     int
	PageSize          int
	TTL               time.Duration
	DetailConcurrency int
}

// DefaultConfig is the reference deployment: 4 genres, 3 pages each,
// a week of freshness, 5 concurrent detail fetches.
func DefaultConfig() Config {
	return Config{
		Genres:            []string{"fiction", "fantasy", "romance", "mystery"},
		PagesPerGenre:     3,
		PageSize:          20,
		TTL:               7 * 24 * time.Hour,
		DetailConcurrency: 5,
	}
}

// State names the phase of the preloader's lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// Status is a snapshot of the preloader's progress. Progress may exceed
// Total: the denominator assumes five details per page and is only an
// estimate.
type Status struct {
	State         State
	Progress      int
	Total         int
	Message       string
	CachedPages   int
	CachedDetails int
	Err           error
}

// Preloader drives one-shot background cache warming. Runs never
// overlap; a second call while one is in flight is a no-op.
type Preloader struct {
	store   *storage.Store
	catalog Catalog
	net     Connectivity
	index   Indexer
	cfg     Config
	log     *slog.Logger

	mu      sync.Mutex
	running bool
	status  Status
}

// New creates a Preloader. index may be nil when no offline search
// index is configured.
func New(store *storage.Store, catalog Catalog, net Connectivity, index Indexer, cfg Config, log *slog.Logger) *Preloader {
	if log == nil {
		log = slog.Default()
	}
	return &Preloader{
		store:   store,
		catalog: catalog,
		net:     net,
		index:   index,
		cfg:     cfg,
		log:     log,
		status:  Status{State: StateIdle},
	}
}

// Status returns the current status snapshot.
func (p *Preloader) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Preloader) setStatus(st Status) {
	p.mu.Lock()
	p.status = st
	p.mu.Unlock()
}

// Run performs one warming pass and returns the final status. It
// returns immediately without touching the cache when a run is already
// in flight or the network is offline.
func (p *Preloader) Run(ctx context.Context) Status {
	p.mu.Lock()
	if p.running {
		st := p.status
		p.mu.Unlock()
		return st
	}
	if !p.net.Online() {
		st := p.status
		p.mu.Unlock()
		return st
	}
	p.running = true
	p.status = Status{State: StateRunning, Progress: 0, Total: 1, Message: "initializing store"}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	st := p.run(ctx)
	p.setStatus(st)
	return st
}

func (p *Preloader) run(ctx context.Context) Status {
	if err := p.store.Init(ctx); err != nil {
		p.log.Error("preload aborted: store init failed", "error", err)
		return Status{State: StateError, Err: fmt.Errorf("init store: %w", err)}
	}

	totalPages := len(p.cfg.Genres) * p.cfg.PagesPerGenre
	// Rough denominator: each page is assumed to yield ~5 details.
	total := totalPages + totalPages*5

	var (
		progress      int
		cachedPages   int
		cachedDetails int
	)
	// Detail workers call bump concurrently; the increment and the
	// status write share the status lock.
	bump := func(msg string) {
		p.mu.Lock()
		progress++
		p.status = Status{
			State:    StateRunning,
			Progress: progress,
			Total:    total,
			Message:  msg,
		}
		p.mu.Unlock()
	}

	// Listing phase: sequential, genre-major then page-minor. Failures
	// skip the page, never the run.
	seen := make(map[string]bool)
	var workKeys []string
	harvest := func(doc openlibrary.Document) {
		for _, key := range harvestWorkKeys(doc) {
			if !seen[key] {
				seen[key] = true
				workKeys = append(workKeys, key)
			}
		}
	}

	for _, genre := range p.cfg.Genres {
		for page := 1; page <= p.cfg.PagesPerGenre; page++ {
			fresh, err := p.store.IsBookPageFresh(ctx, genre, page, p.cfg.TTL)
			if err != nil {
				p.log.Warn("freshness check failed", "genre", genre, "page", page, "error", err)
			}
			if fresh {
				cachedPages++
				bump(fmt.Sprintf("cache ok: %s p%d", genre, page))
				// Harvest from the cached payload so the detail phase
				// does not depend on a live fetch.
				if payload, ok, err := p.store.BookPage(ctx, genre, page); err == nil && ok {
					if doc, err := openlibrary.ParseDocument([]byte(payload)); err == nil {
						harvest(doc)
					}
				}
				continue
			}

			doc, err := p.catalog.SubjectPage(ctx, genre, p.cfg.PageSize, (page-1)*p.cfg.PageSize)
			if err != nil {
				bump(fmt.Sprintf("failed: %s p%d", genre, page))
				p.log.Warn("preload page failed", "genre", genre, "page", page, "error", err)
				continue
			}
			if err := p.store.UpsertBookPage(ctx, genre, page, string(doc.Raw)); err != nil {
				p.log.Warn("preload page write failed", "genre", genre, "page", page, "error", err)
				// The fetched payload is still good for harvesting even
				// though the page does not count as cached.
				bump(fmt.Sprintf("save failed: %s p%d", genre, page))
				harvest(doc)
				continue
			}
			cachedPages++
			bump(fmt.Sprintf("saved: %s p%d", genre, page))
			harvest(doc)
		}
	}

	// Detail phase: fixed worker pool pulling from a shared channel.
	// No ordering is guaranteed among detail writes.
	keyCh := make(chan string, len(workKeys))
	for _, key := range workKeys {
		keyCh <- key
	}
	close(keyCh)

	concurrency := p.cfg.DetailConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	var statsMu sync.Mutex
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range keyCh {
				ok := p.preloadDetail(ctx, key)
				statsMu.Lock()
				if ok {
					cachedDetails++
				}
				statsMu.Unlock()
				if ok {
					bump("detail: " + key)
				} else {
					bump("detail failed: " + key)
				}
			}
		}()
	}
	wg.Wait()

	if p.index != nil {
		if err := p.index.Rebuild(ctx); err != nil {
			p.log.Warn("offline index rebuild failed", "error", err)
		}
	}

	p.log.Info("preload complete", "pages", cachedPages, "details", cachedDetails)
	return Status{
		State:         StateDone,
		Progress:      progress,
		Total:         total,
		CachedPages:   cachedPages,
		CachedDetails: cachedDetails,
	}
}

// preloadDetail warms one work detail, bundling the work document with
// resolved author names and up to eight subjects. Reports whether the
// detail counts as cached.
func (p *Preloader) preloadDetail(ctx context.Context, workKey string) bool {
	fresh, err := p.store.IsDetailFresh(ctx, workKey, p.cfg.TTL)
	if err != nil {
		p.log.Warn("detail freshness check failed", "work_key", workKey, "error", err)
	}
	if fresh {
		return true
	}

	work, err := p.catalog.WorkDetail(ctx, workKey)
	if err != nil {
		p.log.Warn("preload detail failed", "work_key", workKey, "error", err)
		return false
	}

	payload, err := BundleDetail(ctx, p.catalog, work)
	if err != nil {
		p.log.Warn("preload detail bundle failed", "work_key", workKey, "error", err)
		return false
	}

	if err := p.store.UpsertDetail(ctx, workKey, payload); err != nil {
		p.log.Warn("preload detail write failed", "work_key", workKey, "error", err)
		return false
	}
	return true
}

// BundleDetail packages a work document with its resolved author names
// and up to eight subjects into one cacheable payload. An author that
// cannot be resolved contributes a placeholder name instead of failing
// the bundle.
func BundleDetail(ctx context.Context, authors AuthorResolver, work openlibrary.Document) (string, error) {
	var authorNames []string
	for _, authorKey := range harvestAuthorKeys(work) {
		name, err := authors.AuthorName(ctx, authorKey)
		if err != nil || name == "" {
			name = "Unknown author"
		}
		authorNames = append(authorNames, name)
	}
	if authorNames == nil {
		authorNames = []string{}
	}

	bundle := map[string]any{
		"work":        json.RawMessage(work.Raw),
		"authorNames": authorNames,
		"subjects":    harvestSubjects(work, 8),
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("marshal detail bundle: %w", err)
	}
	return string(payload), nil
}
