// Package web exposes the cache engine to the UI layer as a JSON API.
// Read paths are cache-first: fresh cache wins, live fetches refresh the
// cache, and network failures fall back to whatever is cached.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FabianFlo/bookapp/internal/cover"
	"github.com/FabianFlo/bookapp/internal/openlibrary"
	"github.com/FabianFlo/bookapp/internal/prefetch"
	"github.com/FabianFlo/bookapp/internal/search"
	"github.com/FabianFlo/bookapp/internal/storage"
)

// Catalog is the remote API surface the read-through handlers use.
type Catalog interface {
	SubjectPage(ctx context.Context, subject string, limit, offset int) (openlibrary.Document, error)
	WorkDetail(ctx context.Context, workKey string) (openlibrary.Document, error)
	AuthorName(ctx context.Context, authorKey string) (string, error)
	Search(ctx context.Context, q string, page int) (openlibrary.Document, error)
}

// Connectivity reports whether the network is reachable.
type Connectivity interface {
	Online() bool
}

// Server wires the store, catalog client, cover resolver, preloader and
// offline index behind HTTP handlers.
type Server struct {
	store     *storage.Store
	catalog   Catalog
	covers    *cover.Resolver
	preloader *prefetch.Preloader
	index     *search.Index
	net       Connectivity
	ttl       time.Duration
	pageSize  int
	log       *slog.Logger
}

// NewServer creates a Server. index may be nil when no offline search
// index is configured.
func NewServer(store *storage.Store, catalog Catalog, covers *cover.Resolver, preloader *prefetch.Preloader, index *search.Index, net Connectivity, ttl time.Duration, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:     store,
		catalog:   catalog,
		covers:    covers,
		preloader: preloader,
		index:     index,
		net:       net,
		ttl:       ttl,
		pageSize:  20,
		log:       log,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/books", s.handleBooks)
	mux.HandleFunc("GET /api/works/{key}", s.handleWorkDetail)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/covers/{id}", s.handleCover)

	mux.HandleFunc("GET /api/lists", s.handleLists)
	mux.HandleFunc("POST /api/lists", s.handleCreateList)
	mux.HandleFunc("PUT /api/lists/{id}", s.handleRenameList)
	mux.HandleFunc("DELETE /api/lists/{id}", s.handleDeleteList)
	mux.HandleFunc("GET /api/lists/{id}/books", s.handleListBooks)
	mux.HandleFunc("POST /api/lists/{id}/books", s.handleAddListBook)
	mux.HandleFunc("DELETE /api/lists/{id}/books/{key}", s.handleRemoveListBook)

	mux.HandleFunc("POST /api/prefetch", s.handlePrefetch)
	mux.HandleFunc("GET /api/prefetch/status", s.handlePrefetchStatus)

	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRawJSON serves an already-serialized cache payload.
func writeRawJSON(w http.ResponseWriter, status int, payload string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(payload))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"online": s.net.Online(),
	})
}

// handleBooks serves one genre listing page: fresh cache, then live
// fetch with refresh, then stale cache.
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	genre := r.URL.Query().Get("genre")
	if genre == "" {
		writeError(w, http.StatusBadRequest, "genre is required")
		return
	}
	page := queryInt(r, "page", 1)
	ctx := r.Context()

	fresh, _ := s.store.IsBookPageFresh(ctx, genre, page, s.ttl)
	if fresh {
		if payload, ok, err := s.store.BookPage(ctx, genre, page); err == nil && ok {
			writeRawJSON(w, http.StatusOK, payload)
			return
		}
	}

	if s.net.Online() {
		doc, err := s.catalog.SubjectPage(ctx, genre, s.pageSize, (page-1)*s.pageSize)
		if err == nil {
			if err := s.store.UpsertBookPage(ctx, genre, page, string(doc.Raw)); err != nil {
				s.log.Warn("book page cache write failed", "genre", genre, "page", page, "error", err)
			}
			writeRawJSON(w, http.StatusOK, string(doc.Raw))
			return
		}
		s.log.Warn("live listing fetch failed", "genre", genre, "page", page, "error", err)
	}

	// Stale cache beats nothing.
	if payload, ok, err := s.store.BookPage(ctx, genre, page); err == nil && ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}
	writeError(w, http.StatusServiceUnavailable, "listing unavailable offline")
}

// handleWorkDetail serves a bundled work detail, fetching and caching it
// on a miss.
func (s *Server) handleWorkDetail(w http.ResponseWriter, r *http.Request) {
	workKey := "/works/" + r.PathValue("key")
	ctx := r.Context()

	if payload, ok, err := s.store.Detail(ctx, workKey); err == nil && ok {
		writeRawJSON(w, http.StatusOK, payload)
		return
	}

	if !s.net.Online() {
		writeError(w, http.StatusServiceUnavailable, "detail unavailable offline")
		return
	}

	work, err := s.catalog.WorkDetail(ctx, workKey)
	if err != nil {
		s.log.Warn("live detail fetch failed", "work_key", workKey, "error", err)
		writeError(w, http.StatusBadGateway, "detail fetch failed")
		return
	}

	payload, err := prefetch.BundleDetail(ctx, s.catalog, work)
	if err != nil {
		writeError(w, http.StatusBadGateway, "detail bundle failed")
		return
	}
	if err := s.store.UpsertDetail(ctx, workKey, payload); err != nil {
		s.log.Warn("detail cache write failed", "work_key", workKey, "error", err)
	}
	if s.index != nil {
		if err := s.index.IndexDetail(workKey, payload); err != nil {
			s.log.Warn("detail index failed", "work_key", workKey, "error", err)
		}
	}
	writeRawJSON(w, http.StatusOK, payload)
}

// handleSearch serves free-text search: live when online (with cache
// refresh), otherwise cached exact page, then substring scan, then the
// full-text index.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	page := queryInt(r, "page", 1)
	ctx := r.Context()

	if s.net.Online() {
		doc, err := s.catalog.Search(ctx, q, page)
		if err == nil {
			items := doc.Items()
			if data, merr := json.Marshal(items); merr == nil {
				if err := s.store.UpsertSearchResults(ctx, q, page, string(data)); err != nil {
					s.log.Warn("search cache write failed", "query", q, "error", err)
				}
			}
			writeJSON(w, http.StatusOK, map[string]any{"source": "live", "items": items})
			return
		}
		s.log.Warn("live search failed", "query", q, "error", err)
	}

	if data, ok, err := s.store.SearchResults(ctx, q, page); err == nil && ok {
		writeRawJSON(w, http.StatusOK, `{"source":"cache","items":`+data+`}`)
		return
	}

	if items, err := s.store.SearchSimilarOffline(ctx, q); err == nil && len(items) > 0 {
		writeJSON(w, http.StatusOK, map[string]any{"source": "similar", "items": items})
		return
	}

	if s.index != nil {
		if hits, err := s.index.Search(q, 25); err == nil && len(hits) > 0 {
			writeJSON(w, http.StatusOK, map[string]any{"source": "index", "items": hits})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"source": "none", "items": []any{}})
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cover id")
		return
	}
	data := s.covers.Resolve(r.Context(), &id)
	writeJSON(w, http.StatusOK, map[string]string{"data": data})
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.Lists(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lists unavailable")
		return
	}
	if lists == nil {
		lists = []storage.List{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	id, err := s.store.CreateList(r.Context(), body.Name)
	if errors.Is(err, storage.ErrListNameTaken) {
		writeError(w, http.StatusConflict, "list name already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleRenameList(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list id")
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	switch err := s.store.RenameList(r.Context(), id, body.Name); {
	case errors.Is(err, storage.ErrListNameTaken):
		writeError(w, http.StatusConflict, "list name already exists")
	case errors.Is(err, storage.ErrListNotFound):
		writeError(w, http.StatusNotFound, "list not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "rename failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list id")
		return
	}
	switch err := s.store.DeleteList(r.Context(), id); {
	case errors.Is(err, storage.ErrListNotFound):
		writeError(w, http.StatusNotFound, "list not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "delete failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list id")
		return
	}
	books, err := s.store.ListBooks(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list unavailable")
		return
	}
	if books == nil {
		books = []storage.ListBook{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleAddListBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list id")
		return
	}
	var book storage.ListBook
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil || book.WorkKey == "" {
		writeError(w, http.StatusBadRequest, "work_key is required")
		return
	}
	outcome, err := s.store.AddBookToList(r.Context(), id, book)
	if errors.Is(err, storage.ErrListNotFound) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "add failed")
		return
	}
	result := "added"
	if outcome == storage.Duplicate {
		result = "duplicate"
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (s *Server) handleRemoveListBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list id")
		return
	}
	workKey := "/works/" + r.PathValue("key")
	if err := s.store.RemoveBookFromList(r.Context(), id, workKey); err != nil {
		writeError(w, http.StatusInternalServerError, "remove failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePrefetch starts a background warming run. Starting is
// fire-and-forget; overlap and offline no-ops are the preloader's job.
func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	go s.preloader.Run(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handlePrefetchStatus(w http.ResponseWriter, r *http.Request) {
	st := s.preloader.Status()
	resp := map[string]any{
		"state":          st.State,
		"progress":       st.Progress,
		"total":          st.Total,
		"message":        st.Message,
		"cached_pages":   st.CachedPages,
		"cached_details": st.CachedDetails,
	}
	if st.Err != nil {
		resp["error"] = st.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
