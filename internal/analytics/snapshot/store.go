// Package snapshot periodically saves the aggregated analytics to the SQL
// database so the history survives restarts of the service.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/database"
)

const schema = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
	captured_at BIGINT NOT NULL,
	data        TEXT NOT NULL
)`

const (
	defaultListLimit = 20
	maxListLimit     = 1000
)

// StatsSource is satisfied by *analytics.Aggregator.
type StatsSource interface {
	Stats() analytics.AggregatedStats
}

type Snapshot struct {
	CapturedAt time.Time                 `json:"captured_at"`
	Stats      analytics.AggregatedStats `json:"stats"`
}

type row struct {
	CapturedAt int64  `db:"captured_at"`
	Data       string `db:"data"`
}

type Store struct {
	db     *database.Client
	now    func() time.Time
	logger *slog.Logger
}

func NewStore(db *database.Client) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "analytics-snapshots"),
	}
}

// EnsureSchema creates the snapshot table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding analytics snapshot: %w", err)
	}
	insert := s.db.DB.Rebind("INSERT INTO analytics_snapshots (captured_at, data) VALUES (?, ?)")
	if _, err := s.db.DB.ExecContext(ctx, insert, s.now().UnixNano(), string(data)); err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "searches", stats.TotalSearches, "rebuilds", stats.Rebuilds)
	return nil
}

// Latest returns the newest snapshot, or nil when none was saved yet.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	var r row
	err := s.db.DB.GetContext(ctx, &r, "SELECT captured_at, data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest analytics snapshot: %w", err)
	}
	snap, err := decode(r)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// List returns up to limit snapshots, newest first. Rows that no longer
// decode are skipped.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	var rows []row
	query := s.db.DB.Rebind("SELECT captured_at, data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT ?")
	if err := s.db.DB.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("listing analytics snapshots: %w", err)
	}
	snapshots := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		snap, err := decode(r)
		if err != nil {
			s.logger.Warn("skipping corrupt snapshot", "captured_at", r.CapturedAt, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func decode(r row) (Snapshot, error) {
	var stats analytics.AggregatedStats
	if err := json.Unmarshal([]byte(r.Data), &stats); err != nil {
		return Snapshot{}, fmt.Errorf("decoding analytics snapshot: %w", err)
	}
	return Snapshot{CapturedAt: time.Unix(0, r.CapturedAt).UTC(), Stats: stats}, nil
}

// Run saves src every interval until ctx is done, then saves once more.
func (s *Store) Run(ctx context.Context, src StatsSource, interval time.Duration) error {
	s.logger.Info("periodic analytics snapshots started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Save(ctx, src.Stats()); err != nil {
				s.logger.Error("analytics snapshot failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Save(final, src.Stats()); err != nil {
				s.logger.Error("final analytics snapshot failed", "error", err)
			}
			return nil
		}
	}
}

// ServeHTTP lists snapshots: GET /api/v1/analytics/snapshots?limit=n.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "{\"error\":\"limit must be between 1 and %d\"}\n", maxListLimit)
			return
		}
		limit = n
	}
	snapshots, err := s.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing snapshots failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"analytics history unavailable"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"snapshots": snapshots}); err != nil {
		s.logger.Error("failed to write snapshots response", "error", err)
	}
}
