package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.MaxResponses != 5 {
		t.Errorf("expected default max responses 5, got %d", cfg.Search.MaxResponses)
	}
	if cfg.Search.MaxConcurrentQueries < 1 {
		t.Errorf("expected positive worker count, got %d", cfg.Search.MaxConcurrentQueries)
	}
	if cfg.Corpus.ConfigPath != "config.json" || cfg.Corpus.AnswersPath != "answers.json" {
		t.Errorf("unexpected corpus paths: %+v", cfg.Corpus)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freqsearch.yaml")
	content := `
search:
  maxResponses: 3
  maxConcurrentQueries: 2
redis:
  addr: "cache:6379"
  cacheTTL: 5m
corpus:
  source: database
database:
  driver: sqlite
  dsn: "file:corpus.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.MaxResponses != 3 || cfg.Search.MaxConcurrentQueries != 2 {
		t.Errorf("search section not applied: %+v", cfg.Search)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Redis.CacheTTL != 5*time.Minute {
		t.Errorf("redis section not applied: %+v", cfg.Redis)
	}
	if got := cfg.Database.DataSourceName(); got != "file:corpus.db" {
		t.Errorf("expected explicit dsn, got %q", got)
	}
	// untouched sections keep their defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SP_REDIS_ADDR", "redis:6380")
	t.Setenv("SP_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SP_SEARCH_MAX_CONCURRENT_QUERIES", "7")
	t.Setenv("SP_SERVER_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SP_ANALYTICS_SNAPSHOT_INTERVAL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("kafka brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Search.MaxConcurrentQueries != 7 {
		t.Errorf("max concurrent queries = %d", cfg.Search.MaxConcurrentQueries)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Analytics.SnapshotInterval != 90*time.Second {
		t.Errorf("snapshot interval = %v", cfg.Analytics.SnapshotInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Search.MaxConcurrentQueries = 0 }},
		{"negative responses", func(c *Config) { c.Search.MaxResponses = -1 }},
		{"unknown source", func(c *Config) { c.Corpus.Source = "s3" }},
		{"unknown driver", func(c *Config) {
			c.Corpus.Source = "database"
			c.Database.Driver = "oracle"
		}},
		{"snapshots without driver", func(c *Config) {
			c.Analytics.SnapshotInterval = time.Minute
			c.Database.Driver = ""
		}},
		{"raw key instead of hash", func(c *Config) { c.Auth.AdminKeyHashes = []string{"secret"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	d := Default().Database
	want := "host=localhost port=5432 user=freqsearch password=localdev dbname=freqsearch sslmode=disable"
	if got := d.DataSourceName(); got != want {
		t.Errorf("DataSourceName() = %q, want %q", got, want)
	}
}
