package ranker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name  string
		abs   map[int]int
		limit int
		want  []RelativeIndex
	}{
		{"empty", map[int]int{}, 5, []RelativeIndex{}},
		{"single", map[int]int{3: 7}, 5, []RelativeIndex{{DocID: 3, Rank: 1}}},
		{
			name:  "scaled and ordered",
			abs:   map[int]int{0: 2, 1: 8, 2: 4},
			limit: 5,
			want:  []RelativeIndex{{1, 1}, {2, 0.5}, {0, 0.25}},
		},
		{
			name:  "ties by ascending doc id",
			abs:   map[int]int{9: 3, 2: 3, 5: 3, 7: 6},
			limit: 5,
			want:  []RelativeIndex{{7, 1}, {2, 0.5}, {5, 0.5}, {9, 0.5}},
		},
		{
			name:  "truncated",
			abs:   map[int]int{0: 1, 1: 2, 2: 3, 3: 4},
			limit: 2,
			want:  []RelativeIndex{{3, 1}, {2, 0.75}},
		},
		{"zero limit", map[int]int{0: 1}, 0, []RelativeIndex{}},
		{"negative limit", map[int]int{0: 1}, -3, []RelativeIndex{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.abs, tt.limit)
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Rank mismatch (-got +want)\n%s", diff)
			}
		})
	}
}

func TestRankDeterministic(t *testing.T) {
	abs := make(map[int]int)
	for i := 0; i < 100; i++ {
		abs[i] = i % 4
		if abs[i] == 0 {
			abs[i] = 4
		}
	}
	first := Rank(abs, 100)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(Rank(abs, 100), first); diff != "" {
			t.Fatalf("run %d differs (-got +want)\n%s", i, diff)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Rank > first[i-1].Rank {
			t.Fatalf("ranks increase at %d: %v > %v", i, first[i].Rank, first[i-1].Rank)
		}
	}
}
