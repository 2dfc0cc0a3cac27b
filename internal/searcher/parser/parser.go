// Package parser turns a raw request string into the ordered list of terms
// the executor evaluates.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer/tokenizer"
)

// QueryPlan is a tokenized query. Terms keeps repeated words and their
// original order; every occurrence is evaluated.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

func Parse(query string) *QueryPlan {
	return &QueryPlan{
		Terms:    tokenizer.Terms(query),
		RawQuery: query,
	}
}

// Distinct returns the terms of the plan without repeats, in first-seen order.
func (p *QueryPlan) Distinct() []string {
	seen := make(map[string]struct{}, len(p.Terms))
	distinct := make([]string, 0, len(p.Terms))
	for _, term := range p.Terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		distinct = append(distinct, term)
	}
	return distinct
}
