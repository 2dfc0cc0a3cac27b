package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventRebuild    EventType = "index_rebuild"
	EventRecord     EventType = "index_record"
)

// SearchEvent describes one evaluated query.
type SearchEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	Terms        []string  `json:"terms"`
	TotalHits    int       `json:"total_hits"`
	Returned     int       `json:"returned"`
	MaxResponses int       `json:"max_responses"`
	LatencyUs    int64     `json:"latency_us"`
	CacheHit     bool      `json:"cache_hit"`
	Timestamp    time.Time `json:"timestamp"`
	BatchID      string    `json:"batch_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
}

// IndexEvent describes a rebuild of the index or a single-word update.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Word       string    `json:"word,omitempty"`
	DocID      int       `json:"doc_id,omitempty"`
	Words      int       `json:"words,omitempty"`
	Generation uint64    `json:"generation"`
	LatencyUs  int64     `json:"latency_us"`
	Timestamp  time.Time `json:"timestamp"`
}
