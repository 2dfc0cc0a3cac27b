package executor

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
)

// PostingSource is the read side of the frequency index. LookupAll must
// read every term from the same version of the index.
type PostingSource interface {
	LookupAll(terms []string) map[string]index.PostingList
}

type SearchResult struct {
	Query     string                 `json:"query"`
	TotalHits int                    `json:"total_hits"`
	Results   []ranker.RelativeIndex `json:"results"`
	TermStats map[string]int         `json:"term_stats"`
}

type Executor struct {
	source PostingSource
	logger *slog.Logger
}

func New(source PostingSource) *Executor {
	return &Executor{
		source: source,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute evaluates one query. Terms are processed rarest first; the
// candidate set starts as the first term's documents and is intersected with
// each following term's documents. After each intersection the term's counts
// are added to the absolute rank of the documents still in the candidate
// set. Only documents in the final candidate set are ranked.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if len(plan.Terms) == 0 {
		return &SearchResult{
			Query:     plan.RawQuery,
			Results:   []ranker.RelativeIndex{},
			TermStats: map[string]int{},
		}, nil
	}

	postingsPerTerm := e.source.LookupAll(plan.Distinct())
	termStats := make(map[string]int, len(postingsPerTerm))
	for term, postings := range postingsPerTerm {
		termStats[term] = len(postings)
	}

	terms := make([]string, len(plan.Terms))
	copy(terms, plan.Terms)
	sort.SliceStable(terms, func(i, j int) bool {
		return termStats[terms[i]] < termStats[terms[j]]
	})

	candidates, absRank := intersectAndAccumulate(terms, postingsPerTerm)
	for docID := range absRank {
		if _, ok := candidates[docID]; !ok {
			delete(absRank, docID)
		}
	}
	ranked := ranker.Rank(absRank, limit)

	logger.Enrich(ctx, e.logger).Debug("query executed",
		"query", plan.RawQuery,
		"terms", terms,
		"candidates", len(candidates),
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: len(candidates),
		Results:   ranked,
		TermStats: termStats,
	}, nil
}

// intersectAndAccumulate walks terms in the given order. The whole list is
// processed even after the candidate set becomes empty.
func intersectAndAccumulate(terms []string, postingsPerTerm map[string]index.PostingList) (map[int]struct{}, map[int]int) {
	var candidates map[int]struct{}
	absRank := make(map[int]int)
	for i, term := range terms {
		postings := postingsPerTerm[term]
		if i == 0 {
			candidates = make(map[int]struct{}, len(postings))
			for _, p := range postings {
				candidates[p.DocID] = struct{}{}
			}
		} else {
			narrowed := make(map[int]struct{}, len(candidates))
			for _, p := range postings {
				if _, ok := candidates[p.DocID]; ok {
					narrowed[p.DocID] = struct{}{}
				}
			}
			candidates = narrowed
		}
		for _, p := range postings {
			if _, ok := candidates[p.DocID]; ok {
				absRank[p.DocID] += p.Count
			}
		}
	}
	return candidates, absRank
}
