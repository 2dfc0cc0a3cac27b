// Package consumer applies incremental index updates read from Kafka.
package consumer

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/kafka"
)

// Writer is the write side of the indexer engine.
type Writer interface {
	Record(ctx context.Context, word string, docID int) error
	AddWords(ctx context.Context, docID int, text string) (int, error)
}

// IndexConsumer drives a Kafka consumer whose messages update the index.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler applying every update to w.
// Malformed or invalid events are logged and committed so they are not
// redelivered.
func HandleMessage(w Writer) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.UpdateEvent](value)
		if err == nil {
			err = validator.ValidateUpdate(event)
		}
		if err != nil {
			logger.Error("skipping update event", "key", string(key), "error", err)
			return nil
		}

		docID := *event.DocID
		if event.Word != "" {
			if err := w.Record(ctx, event.Word, docID); err != nil {
				logger.Error("skipping update event", "key", string(key), "doc_id", docID, "error", err)
				return nil
			}
			logger.Debug("word applied", "doc_id", docID, "word", event.Word)
		}
		if event.Text != "" {
			n, err := w.AddWords(ctx, docID, event.Text)
			if err != nil {
				logger.Error("skipping update event", "key", string(key), "doc_id", docID, "error", err)
				return nil
			}
			logger.Debug("text applied", "doc_id", docID, "words", n)
		}
		return nil
	}
}
