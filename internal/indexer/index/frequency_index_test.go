package index

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

func TestRebuildEmptyCorpus(t *testing.T) {
	f := NewFrequencyIndex()
	f.Rebuild([]string{"a b", "c"})
	f.Rebuild(nil)

	for _, term := range []string{"a", "b", "c", ""} {
		if got := f.Lookup(term); len(got) != 0 {
			t.Errorf("Lookup(%q) after empty rebuild = %v, want empty", term, got)
		}
	}
	if f.TermCount() != 0 || f.DocCount() != 0 {
		t.Errorf("expected empty index, got %d terms / %d docs", f.TermCount(), f.DocCount())
	}
}

func TestLookup(t *testing.T) {
	f := NewFrequencyIndex()
	f.Rebuild([]string{"a b a", "b c"})

	tests := []struct {
		term string
		want PostingList
	}{
		{"a", PostingList{{DocID: 0, Count: 2}}},
		{"b", PostingList{{DocID: 0, Count: 1}, {DocID: 1, Count: 1}}},
		{"c", PostingList{{DocID: 1, Count: 1}}},
		{"d", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := f.Lookup(tt.term)
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Lookup(%q) mismatch (-got +want)\n%s", tt.term, diff)
			}
		})
	}
}

func TestLookupOrderedByDocID(t *testing.T) {
	docs := make([]string, 50)
	for i := range docs {
		docs[i] = "shared"
	}
	f := NewFrequencyIndex()
	f.Rebuild(docs)

	got := f.Lookup("shared")
	if len(got) != len(docs) {
		t.Fatalf("expected %d postings, got %d", len(docs), len(got))
	}
	for i, p := range got {
		if p.DocID != i {
			t.Fatalf("posting %d has doc id %d", i, p.DocID)
		}
	}
}

func TestRebuildReplacesContent(t *testing.T) {
	f := NewFrequencyIndex()
	f.Rebuild([]string{"old words"})
	f.Rebuild([]string{"new", "new words"})

	if got := f.Lookup("old"); got != nil {
		t.Errorf("expected old term to be discarded, got %v", got)
	}
	want := PostingList{{DocID: 1, Count: 1}}
	if diff := cmp.Diff(f.Lookup("words"), want); diff != "" {
		t.Errorf("Lookup(words) mismatch (-got +want)\n%s", diff)
	}
}

func TestRebuildIdempotent(t *testing.T) {
	corpus := []string{
		"milk milk milk milk water water water",
		"milk water water",
		"milk milk milk milk milk water water water water water",
		"americano cappuccino",
	}
	once := NewFrequencyIndex()
	once.Rebuild(corpus)
	twice := NewFrequencyIndex()
	twice.Rebuild(corpus)
	twice.Rebuild(corpus)

	if diff := cmp.Diff(once.Snapshot(), twice.Snapshot()); diff != "" {
		t.Errorf("double rebuild differs from single rebuild (-once +twice)\n%s", diff)
	}
}

func TestRecord(t *testing.T) {
	f := NewFrequencyIndex()
	f.Rebuild([]string{"a", "b"})

	f.Record("a", 0)
	f.Record("a", 1)
	f.Record("z", 4)

	if diff := cmp.Diff(f.Lookup("a"), PostingList{{0, 2}, {1, 1}}); diff != "" {
		t.Errorf("Lookup(a) mismatch (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(f.Lookup("z"), PostingList{{4, 1}}); diff != "" {
		t.Errorf("Lookup(z) mismatch (-got +want)\n%s", diff)
	}
	if f.DocCount() != 5 {
		t.Errorf("expected doc count to grow to 5, got %d", f.DocCount())
	}
}

func TestRecordNegativeDocIDPanics(t *testing.T) {
	f := NewFrequencyIndex()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for negative doc id")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, apperrors.ErrInvalidDocID) {
			t.Errorf("expected ErrInvalidDocID, got %v", r)
		}
	}()
	f.Record("a", -1)
}

func TestNoZeroCounts(t *testing.T) {
	f := NewFrequencyIndex()
	f.Rebuild([]string{"x y", "", "y y", "   "})
	f.Record("x", 3)
	for _, entry := range f.Snapshot() {
		for _, p := range entry.Postings {
			if p.Count < 1 {
				t.Errorf("term %q doc %d has count %d", entry.Term, p.DocID, p.Count)
			}
		}
	}
}

func TestGenerationAndStats(t *testing.T) {
	f := NewFrequencyIndex()
	if f.Generation() != 0 {
		t.Fatalf("expected generation 0, got %d", f.Generation())
	}
	f.Rebuild([]string{"a b a", "b c"})
	f.Record("c", 0)

	want := Stats{Terms: 3, Documents: 2, Postings: 5, Generation: 2}
	if diff := cmp.Diff(f.Stats(), want); diff != "" {
		t.Errorf("Stats mismatch (-got +want)\n%s", diff)
	}
}

func TestConcurrentLookupDuringRebuild(t *testing.T) {
	small := []string{"a a", "a"}
	large := make([]string, 200)
	for i := range large {
		large[i] = fmt.Sprintf("a doc%d", i)
	}
	f := NewFrequencyIndex()
	f.Rebuild(small)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n := len(f.Lookup("a"))
				if n != len(small) && n != len(large) {
					t.Errorf("observed torn table: %d postings", n)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			f.Rebuild(large)
		} else {
			f.Rebuild(small)
		}
	}
	close(stop)
	wg.Wait()
}

func TestRecordAll(t *testing.T) {
	f := NewFrequencyIndex()
	f.Rebuild([]string{"a b a", "b c"})

	stats := f.RecordAll([]string{"c", "d", "c", "a"}, 0)
	want := Stats{Terms: 4, Documents: 2, Postings: 6, Generation: 5}
	if diff := cmp.Diff(stats, want); diff != "" {
		t.Errorf("RecordAll stats mismatch (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(f.Lookup("c"), PostingList{{0, 2}, {1, 1}}); diff != "" {
		t.Errorf("Lookup(c) mismatch (-got +want)\n%s", diff)
	}

	postings := 0
	for _, entry := range f.Snapshot() {
		postings += len(entry.Postings)
	}
	if got := f.Stats().Postings; got != postings {
		t.Errorf("Stats().Postings = %d, table holds %d", got, postings)
	}
}

func TestRecordMaxDocID(t *testing.T) {
	f := NewFrequencyIndex()
	f.Record("a", math.MaxInt)
	if got := f.DocCount(); got != math.MaxInt {
		t.Errorf("DocCount() = %d, want %d", got, math.MaxInt)
	}
	f.Record("a", 3)
	if got := f.DocCount(); got != math.MaxInt {
		t.Errorf("DocCount() after a smaller id = %d", got)
	}
}

func TestLookupAll(t *testing.T) {
	f := NewFrequencyIndex()
	f.Rebuild([]string{"a b a", "b c"})

	got := f.LookupAll([]string{"a", "b", "zebra"})
	want := map[string]PostingList{
		"a":     {{0, 2}},
		"b":     {{0, 1}, {1, 1}},
		"zebra": nil,
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("LookupAll mismatch (-got +want)\n%s", diff)
	}
}

func TestLookupAllReadsOneTable(t *testing.T) {
	// x and y never share a document in either corpus
	corpora := [][]string{{"x", "y"}, {"y", "x"}}
	f := NewFrequencyIndex()
	f.Rebuild(corpora[0])

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				f.Rebuild(corpora[i%2])
			}
		}
	}()

	for range 2000 {
		lists := f.LookupAll([]string{"x", "y"})
		for _, px := range lists["x"] {
			for _, py := range lists["y"] {
				if px.DocID == py.DocID {
					t.Fatalf("x and y both in doc %d: lists from two tables", px.DocID)
				}
			}
		}
	}
	close(stop)
	wg.Wait()
}
