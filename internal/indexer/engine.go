// Package indexer owns the frequency index of a running process and every
// write made to it: full rebuilds from a corpus and single-word updates.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
)

// Tracker receives one analytics event per index write.
type Tracker interface {
	Track(event interface{})
}

// ChangeFunc is called after every write with the new index generation.
type ChangeFunc func(ctx context.Context, generation uint64)

type Engine struct {
	idx     *index.FrequencyIndex
	metrics *metrics.Metrics
	tracker Tracker
	logger  *slog.Logger

	hooksMu sync.RWMutex
	hooks   []ChangeFunc
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithTracker(t Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		idx:    index.NewFrequencyIndex(),
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnChange registers fn to run after every write.
func (e *Engine) OnChange(fn ChangeFunc) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Rebuild replaces the index with the counts of documents; document ids are
// slice positions.
func (e *Engine) Rebuild(ctx context.Context, documents []string) index.Stats {
	start := time.Now()
	e.idx.Rebuild(documents)
	stats := e.idx.Stats()
	latency := time.Since(start)

	e.logger.Info("index rebuilt",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"generation", stats.Generation,
		"latency_ms", latency.Milliseconds(),
	)
	if e.metrics != nil {
		e.metrics.IndexRebuildsTotal.Inc()
	}
	e.track(analytics.IndexEvent{
		Type:       analytics.EventRebuild,
		Documents:  stats.Documents,
		Terms:      stats.Terms,
		Generation: stats.Generation,
		LatencyUs:  latency.Microseconds(),
		Timestamp:  time.Now().UTC(),
	})
	e.changed(ctx, stats)
	return stats
}

// Record adds one occurrence of word to document docID.
func (e *Engine) Record(ctx context.Context, word string, docID int) error {
	if err := validDocID(docID); err != nil {
		return err
	}
	if word == "" || strings.ContainsFunc(word, unicode.IsSpace) {
		return fmt.Errorf("%w: word %q is not a single term", apperrors.ErrInvalidInput, word)
	}
	e.record(ctx, docID, []string{word})
	return nil
}

// AddWords records every whitespace-separated token of text against docID
// and returns how many were recorded. The tokens are written under one
// acquisition of the index lock and reported as a single change.
func (e *Engine) AddWords(ctx context.Context, docID int, text string) (int, error) {
	if err := validDocID(docID); err != nil {
		return 0, err
	}
	terms := tokenizer.Terms(text)
	if len(terms) == 0 {
		return 0, nil
	}
	e.record(ctx, docID, terms)
	return len(terms), nil
}

func (e *Engine) record(ctx context.Context, docID int, terms []string) {
	stats := e.idx.RecordAll(terms, docID)
	if e.metrics != nil {
		e.metrics.WordsRecordedTotal.Add(float64(len(terms)))
	}
	event := analytics.IndexEvent{
		Type:       analytics.EventRecord,
		Documents:  stats.Documents,
		Terms:      stats.Terms,
		DocID:      docID,
		Words:      len(terms),
		Generation: stats.Generation,
		Timestamp:  time.Now().UTC(),
	}
	if len(terms) == 1 {
		event.Word = terms[0]
	}
	e.logger.Debug("words recorded", "doc_id", docID, "words", len(terms), "generation", stats.Generation)
	e.track(event)
	e.changed(ctx, stats)
}

// validDocID rejects negative ids and math.MaxInt, whose slot count does not
// fit in an int.
func validDocID(docID int) error {
	if docID < 0 || docID == math.MaxInt {
		return fmt.Errorf("%w: %d", apperrors.ErrInvalidDocID, docID)
	}
	return nil
}

func (e *Engine) Lookup(term string) index.PostingList {
	return e.idx.Lookup(term)
}

// LookupAll reads the postings of every term from one version of the index.
func (e *Engine) LookupAll(terms []string) map[string]index.PostingList {
	return e.idx.LookupAll(terms)
}

func (e *Engine) Stats() index.Stats {
	return e.idx.Stats()
}

func (e *Engine) Generation() uint64 {
	return e.idx.Generation()
}

// Snapshot returns the whole table ordered by term.
func (e *Engine) Snapshot() []index.TermEntry {
	return e.idx.Snapshot()
}

func (e *Engine) changed(ctx context.Context, stats index.Stats) {
	if e.metrics != nil {
		e.metrics.IndexTerms.Set(float64(stats.Terms))
		e.metrics.IndexDocuments.Set(float64(stats.Documents))
	}
	e.hooksMu.RLock()
	hooks := make([]ChangeFunc, len(e.hooks))
	copy(hooks, e.hooks)
	e.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, stats.Generation)
	}
}

func (e *Engine) track(event analytics.IndexEvent) {
	if e.tracker != nil {
		e.tracker.Track(event)
	}
}
