// Package ingestion defines the incremental index update carried on the
// index-updates Kafka topic.
package ingestion

import "time"

// UpdateEvent adds the words of Text, or the single Word, to document DocID.
// DocID is a pointer so that a missing id can be told apart from id 0.
type UpdateEvent struct {
	DocID       *int      `json:"doc_id"`
	Text        string    `json:"text,omitempty"`
	Word        string    `json:"word,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}
