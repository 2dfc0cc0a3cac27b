package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/converter"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/resilience"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long: `Builds the index from the configured corpus and serves search,
index and analytics endpoints. Redis, Kafka and file watching are enabled
by the service config.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(cmd.Context())
	slog.Info("starting freqsearch", "version", version, "port", cfg.Server.Port)

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		g.Go(func() error { return metrics.Serve(ctx, addr, metrics.Handler()) })
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher = aggregator
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.HandleMessage())
		g.Go(func() error { return analyticsConsumer.Start(ctx) })
		slog.Info("analytics routed through kafka", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}
	collector := analytics.NewCollector(publisher, 10000, 100, 5*time.Second)
	collector.Start(ctx)
	defer collector.Close()

	engine := indexer.NewEngine(indexer.WithMetrics(m), indexer.WithTracker(collector))
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d terms, %d documents, generation %d", stats.Terms, stats.Documents, stats.Generation),
		}
	})

	closeSource, err := loadCorpus(ctx, g, cfg, engine, checker)
	if err != nil {
		return err
	}
	defer closeSource()

	searchOpts := []searcher.Option{searcher.WithMetrics(m), searcher.WithTracker(collector)}
	handlerOpts := []handler.Option{handler.WithAnalytics(aggregator)}
	keys, err := apikey.NewValidator(cfg.Auth.AdminKeyHashes)
	if err != nil {
		return err
	}
	if keys.Enabled() {
		handlerOpts = append(handlerOpts, handler.WithAdminAuth(middleware.RequireAPIKey(keys)))
		slog.Info("index and cache mutations require an api key", "keys", len(cfg.Auth.AdminKeyHashes))
	}
	if cfg.Redis.Addr != "" {
		queryCache, closeCache, err := openCache(ctx, cfg.Redis, engine, m, checker)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer closeCache()
			searchOpts = append(searchOpts, searcher.WithCache(queryCache))
			handlerOpts = append(handlerOpts, handler.WithCache(queryCache))
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		updates := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdates, consumer.HandleMessage(engine)))
		g.Go(func() error { return updates.Start(ctx) })
	}

	server := searcher.New(engine, cfg.Search.MaxConcurrentQueries, searchOpts...)
	h := handler.New(server, engine, cfg.Search.MaxResponses, cfg.Search.MaxBatchSize, handlerOpts...)

	mux := http.NewServeMux()
	h.Register(mux)
	if cfg.Analytics.SnapshotInterval > 0 {
		closeSnapshots, err := startSnapshots(ctx, g, cfg, aggregator, checker, mux)
		if err != nil {
			return err
		}
		defer closeSnapshots()
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Logging}
	if len(cfg.Server.CORSOrigins) > 0 {
		mws = append(mws, middleware.CORS(cfg.Server.CORSOrigins))
	}
	if cfg.RateLimit.Enabled {
		mws = append(mws, middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout), middleware.Metrics(m))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("search service listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("search service stopped")
	return err
}

// loadCorpus builds the initial index. Without a config.json a file corpus
// starts empty and can be filled through the API or Kafka.
func loadCorpus(ctx context.Context, g *errgroup.Group, cfg *config.Config, engine *indexer.Engine, checker *health.Checker) (func() error, error) {
	noop := func() error { return nil }
	conv, err := converter.New(cfg.Corpus.ConfigPath, cfg.Corpus.RequestsPath, cfg.Corpus.AnswersPath)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrConfigMissing) && cfg.Corpus.Source == "files":
		slog.Warn("no job config, starting with an empty index", "path", cfg.Corpus.ConfigPath)
		return noop, nil
	case errors.Is(err, apperrors.ErrConfigMissing):
		// the database source does not read config.json
	default:
		return nil, err
	}
	src, closeSource, err := corpus.Open(ctx, cfg, conv)
	if err != nil {
		return nil, err
	}
	if p, ok := src.(interface{ Ping(context.Context) error }); ok {
		checker.Register("database", health.PingCheck(p.Ping, false))
	}

	reload := func(ctx context.Context) error {
		docs, err := src.Documents(ctx)
		if err != nil {
			return err
		}
		engine.Rebuild(ctx, docs)
		return nil
	}
	if err := reload(ctx); err != nil {
		closeSource()
		return nil, err
	}

	if fs, ok := src.(*corpus.FileSource); ok && cfg.Corpus.Watch {
		watcher := corpus.NewWatcher(fs.Paths(), cfg.Corpus.WatchDebounce, reload)
		g.Go(func() error { return watcher.Run(ctx) })
	}
	return closeSource, nil
}

func openCache(ctx context.Context, cfg config.RedisConfig, engine *indexer.Engine, m *metrics.Metrics, checker *health.Checker) (*cache.QueryCache, func() error, error) {
	client, err := pkgredis.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	breaker := cache.NewBreaker(func(name string, _, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	})
	queryCache := cache.New(client, cfg.CacheTTL, engine.Generation, breaker)
	engine.OnChange(queryCache.StartPurger(ctx))
	checker.Register("redis", health.PingCheck(client.Ping, true))
	slog.Info("search cache enabled", "addr", cfg.Addr, "ttl", cfg.CacheTTL)
	return queryCache, client.Close, nil
}

// startSnapshots saves the aggregated analytics to the database every
// analytics.snapshotInterval and serves the saved history.
func startSnapshots(ctx context.Context, g *errgroup.Group, cfg *config.Config, aggregator *analytics.Aggregator, checker *health.Checker, mux *http.ServeMux) (func() error, error) {
	client, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("analytics snapshots: %w", err)
	}
	store := snapshot.NewStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		client.Close()
		return nil, err
	}
	checker.Register("analytics-db", health.PingCheck(client.Ping, true))
	mux.Handle("GET /api/v1/analytics/snapshots", store)
	g.Go(func() error { return store.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval) })
	return client.Close, nil
}
