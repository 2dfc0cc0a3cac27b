// Package handler exposes the search server and the index over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/converter"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
)

const maxBodyBytes = 32 << 20

type Searcher interface {
	SearchDetailed(ctx context.Context, queries []string, maxResponses int) []*executor.SearchResult
}

type Index interface {
	Rebuild(ctx context.Context, documents []string) index.Stats
	Record(ctx context.Context, word string, docID int) error
	Lookup(term string) index.PostingList
	Stats() index.Stats
}

type ResultCache interface {
	Stats() cache.Stats
	Invalidate(ctx context.Context) (int64, error)
}

type Handler struct {
	searcher     Searcher
	index        Index
	cache        ResultCache
	analytics    http.Handler
	adminAuth    func(http.Handler) http.Handler
	defaultLimit int
	maxBatchSize int
	logger       *slog.Logger
}

type Option func(*Handler)

func WithCache(c ResultCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithAnalytics serves the aggregated analytics report under
// /api/v1/analytics.
func WithAnalytics(a http.Handler) Option {
	return func(h *Handler) { h.analytics = a }
}

// WithAdminAuth wraps the index and cache mutation routes.
func WithAdminAuth(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.adminAuth = mw }
}

func New(searcher Searcher, idx Index, defaultLimit, maxBatchSize int, opts ...Option) *Handler {
	h := &Handler{
		searcher:     searcher,
		index:        idx,
		defaultLimit: defaultLimit,
		maxBatchSize: maxBatchSize,
		logger:       slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.SearchGET)
	mux.HandleFunc("POST /api/v1/search", h.SearchPOST)
	mux.Handle("POST /api/v1/index/rebuild", h.admin(h.Rebuild))
	mux.Handle("POST /api/v1/index/record", h.admin(h.Record))
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/index/terms/{term}", h.Term)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.Handle("POST /api/v1/cache/invalidate", h.admin(h.CacheInvalidate))
	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)
}

func (h *Handler) admin(fn http.HandlerFunc) http.Handler {
	if h.adminAuth == nil {
		return fn
	}
	return h.adminAuth(fn)
}

type searchRequest struct {
	Requests     []string `json:"requests"`
	MaxResponses *int     `json:"max_responses"`
	Detailed     bool     `json:"detailed"`
}

type searchResponse struct {
	converter.Answers
	Results []*executor.SearchResult `json:"results,omitempty"`
}

// SearchGET answers every q parameter: /api/v1/search?q=a+b&q=c&limit=3.
func (h *Handler) SearchGET(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	req := searchRequest{Requests: values["q"]}
	if len(req.Requests) == 0 {
		h.writeError(w, r, apperrors.New(apperrors.ErrMissingField, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit %q is not an integer", raw))
			return
		}
		req.MaxResponses = &limit
	}
	req.Detailed, _ = strconv.ParseBool(values.Get("detailed"))
	h.search(w, r, req)
}

// SearchPOST answers {"requests": [...], "max_responses": n}.
func (h *Handler) SearchPOST(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Requests == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrMissingField, http.StatusBadRequest, "field 'requests' is required"))
		return
	}
	h.search(w, r, req)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, req searchRequest) {
	limit := h.defaultLimit
	if req.MaxResponses != nil {
		limit = *req.MaxResponses
	}
	if limit < 0 {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "max_responses must not be negative, got %d", limit))
		return
	}
	if h.maxBatchSize > 0 && len(req.Requests) > h.maxBatchSize {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"batch of %d queries exceeds the limit of %d", len(req.Requests), h.maxBatchSize))
		return
	}

	detailed := h.searcher.SearchDetailed(r.Context(), req.Requests, limit)
	answers := make([][]ranker.RelativeIndex, len(detailed))
	for i, result := range detailed {
		answers[i] = result.Results
	}
	resp := searchResponse{Answers: converter.NewAnswers(answers)}
	if req.Detailed {
		resp.Results = detailed
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type rebuildRequest struct {
	Documents []string `json:"documents"`
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Documents == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrMissingField, http.StatusBadRequest, "field 'documents' is required"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.index.Rebuild(r.Context(), req.Documents))
}

type recordRequest struct {
	Word  string `json:"word"`
	DocID *int   `json:"doc_id"`
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.DocID == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrMissingField, http.StatusBadRequest, "field 'doc_id' is required"))
		return
	}
	if err := h.index.Record(r.Context(), req.Word, *req.DocID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.index.Stats())
}

func (h *Handler) Term(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	postings := h.index.Lookup(term)
	if postings == nil {
		postings = index.PostingList{}
	}
	h.writeJSON(w, http.StatusOK, index.TermEntry{Term: term, Postings: postings})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  stats.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.analytics.ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Newf(apperrors.ErrMalformedFile, http.StatusBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		log.Debug("request rejected", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
