// Package corpus loads the documents the index is built from. A document's
// id is its position in the returned slice.
package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/converter"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/database"
)

type Source interface {
	Documents(ctx context.Context) ([]string, error)
}

// FileSource reads the files listed in a job's config.json.
type FileSource struct {
	conv *converter.ConverterJSON
}

func NewFileSource(conv *converter.ConverterJSON) *FileSource {
	return &FileSource{conv: conv}
}

func (s *FileSource) Documents(ctx context.Context) ([]string, error) {
	return s.conv.TextDocuments(ctx)
}

// Paths returns the files the source reads, for watching.
func (s *FileSource) Paths() []string {
	return s.conv.Files()
}

// Open returns the source selected by cfg.Corpus.Source. The returned close
// func releases any connection the source holds.
func Open(ctx context.Context, cfg *config.Config, conv *converter.ConverterJSON) (Source, func() error, error) {
	switch cfg.Corpus.Source {
	case "", "files":
		return NewFileSource(conv), func() error { return nil }, nil
	case "database":
		client, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("opening corpus database: %w", err)
		}
		return NewSQLSource(client, cfg.Database.Query, cfg.Database.QueryTimeout), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}
