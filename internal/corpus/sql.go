package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/resilience"
)

const DefaultQuery = "SELECT body FROM documents ORDER BY doc_id"

const schema = `CREATE TABLE IF NOT EXISTS documents (
	doc_id INTEGER PRIMARY KEY,
	body   TEXT NOT NULL
)`

// SQLSource reads one document per row of a single-column query. NULL
// bodies become empty documents.
type SQLSource struct {
	client  *database.Client
	query   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewSQLSource(client *database.Client, query string, timeout time.Duration) *SQLSource {
	if query == "" {
		query = DefaultQuery
	}
	return &SQLSource{
		client:  client,
		query:   query,
		timeout: timeout,
		logger:  slog.Default().With("component", "sql-corpus", "driver", client.Driver()),
	}
}

func (s *SQLSource) Documents(ctx context.Context) ([]string, error) {
	var rows []sql.NullString
	retryCfg := resilience.RetryConfig{
		MaxAttempts: 3,
		Retryable: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	}
	err := resilience.Retry(ctx, "load-corpus", retryCfg, func() error {
		batch, err := resilience.Call(ctx, s.timeout, "load-corpus", func(ctx context.Context) ([]sql.NullString, error) {
			var batch []sql.NullString
			err := s.client.DB.SelectContext(ctx, &batch, s.query)
			return batch, err
		})
		if err != nil {
			return err
		}
		rows = batch
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	docs := make([]string, len(rows))
	for i, row := range rows {
		docs[i] = row.String
	}
	s.logger.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}

// Replace stores docs as the documents table, doc_id being the position in
// docs. The table is created when missing.
func (s *SQLSource) Replace(ctx context.Context, docs []string) error {
	insert := s.client.DB.Rebind("INSERT INTO documents (doc_id, body) VALUES (?, ?)")
	err := s.client.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("creating documents table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
			return fmt.Errorf("clearing documents: %w", err)
		}
		for docID, body := range docs {
			if _, err := tx.ExecContext(ctx, insert, docID, body); err != nil {
				return fmt.Errorf("inserting document %d: %w", docID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("corpus stored", "documents", len(docs))
	return nil
}

func (s *SQLSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
