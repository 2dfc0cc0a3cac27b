package index

// Posting is the number of occurrences of one term in one document.
type Posting struct {
	DocID int `json:"doc_id"`
	Count int `json:"count"`
}

// PostingList is ordered ascending by DocID.
type PostingList []Posting

// DocIDs returns the document ids of the list, in list order.
func (pl PostingList) DocIDs() []int {
	ids := make([]int, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

type Stats struct {
	Terms      int    `json:"terms"`
	Documents  int    `json:"documents"`
	Postings   int    `json:"postings"`
	Generation uint64 `json:"generation"`
}
