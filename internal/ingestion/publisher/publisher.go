// Package publisher sends validated index updates to Kafka. Updates are
// keyed by document id so that the updates of one document keep their order.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/kafka"
)

// EventWriter is satisfied by *kafka.Producer.
type EventWriter interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	writer EventWriter
	now    func() time.Time
	logger *slog.Logger
}

func New(writer EventWriter) *Publisher {
	return &Publisher{
		writer: writer,
		now:    time.Now,
		logger: slog.Default().With("component", "update-publisher"),
	}
}

func (p *Publisher) Publish(ctx context.Context, event ingestion.UpdateEvent) error {
	if err := validator.ValidateUpdate(event); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	event.PublishedAt = p.now().UTC()
	err := p.writer.Publish(ctx, kafka.Event{
		Key:   strconv.Itoa(*event.DocID),
		Value: event,
	})
	if err != nil {
		return fmt.Errorf("publishing update for doc %d: %w", *event.DocID, err)
	}
	p.logger.Debug("update published", "doc_id", *event.DocID, "word", event.Word, "text_bytes", len(event.Text))
	return nil
}
