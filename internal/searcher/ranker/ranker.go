package ranker

import (
	"sort"
)

// RelativeIndex is one ranked document. Rank is the document's absolute
// rank divided by the highest absolute rank of the same query, so the best
// match always has Rank 1.
type RelativeIndex struct {
	DocID int     `json:"docid"`
	Rank  float64 `json:"rank"`
}

// Rank normalises absolute ranks (summed term counts per document) and
// returns at most limit documents, best first. Equal ranks are ordered by
// ascending document id. A limit of zero or less returns no documents.
func Rank(absRank map[int]int, limit int) []RelativeIndex {
	if len(absRank) == 0 || limit <= 0 {
		return []RelativeIndex{}
	}
	docIDs := make([]int, 0, len(absRank))
	maxRank := 0
	for docID, rank := range absRank {
		docIDs = append(docIDs, docID)
		if rank > maxRank {
			maxRank = rank
		}
	}
	sort.Ints(docIDs)

	result := make([]RelativeIndex, 0, len(docIDs))
	for _, docID := range docIDs {
		result = append(result, RelativeIndex{
			DocID: docID,
			Rank:  float64(absRank[docID]) / float64(maxRank),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Rank > result[j].Rank
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
