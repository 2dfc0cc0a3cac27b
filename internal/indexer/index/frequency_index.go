// Package index holds the term frequency table: for every term, how many
// times it occurs in each document of the corpus.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

// FrequencyIndex maps term -> document id -> occurrence count. A single
// mutex serialises every read and write; the table itself never escapes.
type FrequencyIndex struct {
	mu         sync.Mutex
	table      map[string]map[int]int
	docCount   int
	postings   int
	generation uint64
}

func NewFrequencyIndex() *FrequencyIndex {
	return &FrequencyIndex{
		table: make(map[string]map[int]int),
	}
}

// Rebuild discards the current table and replaces it with the counts of
// documents, where a document's id is its position in the slice. The new
// table is built before the lock is taken, so a concurrent Lookup sees
// either the old table or the complete new one.
func (f *FrequencyIndex) Rebuild(documents []string) {
	table := make(map[string]map[int]int)
	postings := 0
	for docID, text := range documents {
		for term, count := range tokenizer.Count(text) {
			docs, exists := table[term]
			if !exists {
				docs = make(map[int]int)
				table[term] = docs
			}
			docs[docID] = count
			postings++
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.table = table
	f.docCount = len(documents)
	f.postings = postings
	f.generation++
}

// Lookup returns the postings of term ordered by ascending document id, or
// nil when the term is unknown.
func (f *FrequencyIndex) Lookup(term string) PostingList {
	f.mu.Lock()
	result := postingsOf(f.table[term])
	f.mu.Unlock()
	sortByDocID(result)
	return result
}

// LookupAll returns the postings of every term read under one acquisition
// of the lock, so all lists come from the same table even while a Rebuild
// runs. Unknown terms map to nil.
func (f *FrequencyIndex) LookupAll(terms []string) map[string]PostingList {
	result := make(map[string]PostingList, len(terms))
	f.mu.Lock()
	for _, term := range terms {
		result[term] = postingsOf(f.table[term])
	}
	f.mu.Unlock()
	for _, postings := range result {
		sortByDocID(postings)
	}
	return result
}

func postingsOf(docs map[int]int) PostingList {
	if docs == nil {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for docID, count := range docs {
		result = append(result, Posting{DocID: docID, Count: count})
	}
	return result
}

func sortByDocID(postings PostingList) {
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
}

// Record adds one occurrence of term to document docID, creating the entry
// when it does not exist yet. A negative docID is a caller bug and panics.
func (f *FrequencyIndex) Record(term string, docID int) {
	if docID < 0 {
		panic(fmt.Errorf("%w: %d", apperrors.ErrInvalidDocID, docID))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(term, docID)
}

// RecordAll is Record for every term in turn, under one acquisition of the
// lock. It returns the stats after the last write.
func (f *FrequencyIndex) RecordAll(terms []string, docID int) Stats {
	if docID < 0 {
		panic(fmt.Errorf("%w: %d", apperrors.ErrInvalidDocID, docID))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, term := range terms {
		f.record(term, docID)
	}
	return f.statsLocked()
}

func (f *FrequencyIndex) record(term string, docID int) {
	docs, exists := f.table[term]
	if !exists {
		docs = make(map[int]int)
		f.table[term] = docs
	}
	if docs[docID] == 0 {
		f.postings++
	}
	docs[docID]++
	switch {
	case docID == math.MaxInt:
		// docID+1 would overflow; the slot count saturates
		f.docCount = math.MaxInt
	case docID >= f.docCount:
		f.docCount = docID + 1
	}
	f.generation++
}

// Snapshot returns a copy of the whole table ordered by term, each posting
// list ordered by document id.
func (f *FrequencyIndex) Snapshot() []TermEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]TermEntry, 0, len(f.table))
	for term, docs := range f.table {
		postings := postingsOf(docs)
		sortByDocID(postings)
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Stats reports the size of the table.
func (f *FrequencyIndex) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statsLocked()
}

func (f *FrequencyIndex) statsLocked() Stats {
	return Stats{
		Terms:      len(f.table),
		Documents:  f.docCount,
		Postings:   f.postings,
		Generation: f.generation,
	}
}

// DocCount is the number of document slots: the corpus size of the last
// Rebuild, grown by Record calls past its end.
func (f *FrequencyIndex) DocCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docCount
}

func (f *FrequencyIndex) TermCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.table)
}

// Generation increases with every Rebuild and Record.
func (f *FrequencyIndex) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}
