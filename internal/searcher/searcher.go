// Package searcher evaluates batches of queries against the frequency index.
// Every query of a batch is an independent unit of work run on a bounded
// worker pool; results come back in input order.
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/tracing"
)

// Cache short-circuits evaluation of queries already answered for the
// current index generation.
type Cache interface {
	GetOrCompute(
		ctx context.Context,
		query string,
		limit int,
		computeFn func() (*executor.SearchResult, error),
	) (*executor.SearchResult, bool, error)
}

// Tracker receives one analytics event per evaluated query.
type Tracker interface {
	Track(event interface{})
}

type Server struct {
	executor *executor.Executor
	cache    Cache
	tracker  Tracker
	metrics  *metrics.Metrics
	workers  int
	logger   *slog.Logger
}

type Option func(*Server)

func WithCache(c Cache) Option {
	return func(s *Server) { s.cache = c }
}

func WithTracker(t Tracker) Option {
	return func(s *Server) { s.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New returns a Server reading postings from source with at most workers
// queries evaluated at the same time.
func New(source executor.PostingSource, workers int, opts ...Option) *Server {
	if workers < 1 {
		workers = 1
	}
	s := &Server{
		executor: executor.New(source),
		workers:  workers,
		logger:   slog.Default().With("component", "search-server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search evaluates every query and returns one result list per query, in
// input order. A query that fails yields an empty list without affecting
// the others.
func (s *Server) Search(ctx context.Context, queries []string, maxResponses int) [][]ranker.RelativeIndex {
	detailed := s.SearchDetailed(ctx, queries, maxResponses)
	answers := make([][]ranker.RelativeIndex, len(detailed))
	for i, result := range detailed {
		answers[i] = result.Results
	}
	return answers
}

// SearchDetailed is Search with the hit counts and per-term document
// frequencies of every query. Every slot is non-nil.
func (s *Server) SearchDetailed(ctx context.Context, queries []string, maxResponses int) []*executor.SearchResult {
	start := time.Now()
	if logger.BatchID(ctx) == "" {
		ctx = logger.WithBatchID(ctx, uuid.NewString())
	}
	log := logger.Enrich(ctx, s.logger)
	ctx, span := tracing.Start(ctx, "search.batch", logger.BatchID(ctx))
	span.SetAttr("queries", len(queries))

	results := make([]*executor.SearchResult, len(queries))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, query := range queries {
		g.Go(func() error {
			result, err := s.handleRequest(ctx, query, maxResponses)
			if err != nil {
				log.Error("query failed", "index", i, "query", query, "error", err)
				result = emptyResult(query)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	span.End()
	span.Log(ctx, log, slog.LevelDebug)

	if s.metrics != nil {
		s.metrics.SearchBatchSize.Observe(float64(len(queries)))
	}
	log.Info("search batch completed",
		"queries", len(queries),
		"max_responses", maxResponses,
		"workers", s.workers,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return results
}

// handleRequest evaluates a single query. A panic inside evaluation is
// turned into an error so that it stays confined to this query's slot.
func (s *Server) handleRequest(ctx context.Context, query string, maxResponses int) (result *executor.SearchResult, err error) {
	start := time.Now()
	cacheHit := false
	ctx, span := tracing.StartChild(ctx, "search.query")
	span.SetAttr("query", query)
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: panic evaluating query: %v", apperrors.ErrInternal, r)
		}
		span.SetAttr("cache_hit", cacheHit)
		if err != nil {
			span.SetAttr("error", err.Error())
		} else {
			span.SetAttr("results", len(result.Results))
		}
		span.End()
		s.observe(ctx, query, result, err, cacheHit, maxResponses, time.Since(start))
	}()

	plan := parser.Parse(query)
	compute := func() (*executor.SearchResult, error) {
		return s.executor.Execute(ctx, plan, maxResponses)
	}
	if s.cache != nil && len(plan.Terms) > 0 {
		result, cacheHit, err = s.cache.GetOrCompute(ctx, query, maxResponses, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		return nil, fmt.Errorf("evaluating query %q: %w", query, err)
	}
	return result, nil
}

func (s *Server) observe(
	ctx context.Context,
	query string,
	result *executor.SearchResult,
	err error,
	cacheHit bool,
	maxResponses int,
	latency time.Duration,
) {
	resultType := "match"
	switch {
	case err != nil:
		resultType = "error"
	case len(result.Results) == 0:
		resultType = "no_match"
	}
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		s.metrics.SearchLatency.Observe(latency.Seconds())
		if result != nil {
			s.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
		}
		if s.cache != nil {
			if cacheHit {
				s.metrics.CacheHitsTotal.Inc()
			} else {
				s.metrics.CacheMissesTotal.Inc()
			}
		}
	}
	if s.tracker == nil || err != nil {
		return
	}
	eventType := analytics.EventSearch
	if len(result.Results) == 0 {
		eventType = analytics.EventZeroResult
	}
	s.tracker.Track(analytics.SearchEvent{
		Type:         eventType,
		Query:        query,
		Terms:        parser.Parse(query).Terms,
		TotalHits:    result.TotalHits,
		Returned:     len(result.Results),
		MaxResponses: maxResponses,
		LatencyUs:    latency.Microseconds(),
		CacheHit:     cacheHit,
		Timestamp:    time.Now().UTC(),
		BatchID:      logger.BatchID(ctx),
		RequestID:    logger.RequestID(ctx),
	})
}

func emptyResult(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		Results:   []ranker.RelativeIndex{},
		TermStats: map[string]int{},
	}
}
