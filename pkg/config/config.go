// Package config loads the service configuration from a YAML file with
// environment-variable overrides. The JSON job files consumed by the batch
// runner (config.json, requests.json) are handled by internal/converter.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Auth      AuthConfig      `yaml:"auth"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// DatabaseConfig describes an optional SQL corpus source. Driver is one of
// "postgres", "mysql" or "sqlite". For postgres the DSN is assembled from the
// individual fields unless DSN is set explicitly.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	Query           string        `yaml:"query"`
	QueryTimeout    time.Duration `yaml:"queryTimeout"`
}

// DataSourceName returns the DSN handed to sql.Open for the configured driver.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" || d.Driver != "postgres" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Empty Brokers disables
// every Kafka-backed component.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexUpdates    string `yaml:"indexUpdates"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and result-cache parameters. Empty Addr
// disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig controls query evaluation.
type SearchConfig struct {
	MaxResponses         int `yaml:"maxResponses"`
	MaxConcurrentQueries int `yaml:"maxConcurrentQueries"`
	MaxBatchSize         int `yaml:"maxBatchSize"`
}

// CorpusConfig locates the batch job files and selects where documents come
// from ("files" reads the paths listed in ConfigPath, "database" uses the
// Database section).
type CorpusConfig struct {
	Source        string        `yaml:"source"`
	ConfigPath    string        `yaml:"configPath"`
	RequestsPath  string        `yaml:"requestsPath"`
	AnswersPath   string        `yaml:"answersPath"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RateLimitConfig is the token bucket applied to the HTTP API.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// AuthConfig lists the SHA-256 hex digests of the API keys allowed to call
// the index and cache mutation endpoints. Empty leaves them open.
type AuthConfig struct {
	AdminKeyHashes []string `yaml:"adminKeyHashes"`
}

// AnalyticsConfig enables periodic snapshots of the aggregated analytics to
// the Database section. Zero disables them.
type AnalyticsConfig struct {
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used for local runs.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Database:        "freqsearch",
			User:            "freqsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			Query:           "SELECT body FROM documents ORDER BY doc_id",
			QueryTimeout:    30 * time.Second,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "freqsearch",
			Topics: KafkaTopics{
				IndexUpdates:    "index-updates",
				AnalyticsEvents: "search-analytics",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Search: SearchConfig{
			MaxResponses:         5,
			MaxConcurrentQueries: runtime.NumCPU(),
			MaxBatchSize:         1000,
		},
		Corpus: CorpusConfig{
			Source:        "files",
			ConfigPath:    "config.json",
			RequestsPath:  "requests.json",
			AnswersPath:   "answers.json",
			WatchDebounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
		},
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Search.MaxConcurrentQueries < 1 {
		return fmt.Errorf("search.maxConcurrentQueries must be positive, got %d", c.Search.MaxConcurrentQueries)
	}
	if c.Search.MaxResponses < 0 {
		return fmt.Errorf("search.maxResponses must not be negative, got %d", c.Search.MaxResponses)
	}
	switch c.Corpus.Source {
	case "files", "database":
	default:
		return fmt.Errorf("corpus.source must be \"files\" or \"database\", got %q", c.Corpus.Source)
	}
	for _, h := range c.Auth.AdminKeyHashes {
		if !isSHA256Hex(h) {
			return fmt.Errorf("auth.adminKeyHashes: %q is not a sha-256 hex digest", h)
		}
	}
	if c.Corpus.Source == "database" || c.Analytics.SnapshotInterval > 0 {
		switch c.Database.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
		}
	}
	return nil
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SP_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SP_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SP_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_AUTH_ADMIN_KEY_HASHES"); v != "" {
		cfg.Auth.AdminKeyHashes = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_SEARCH_MAX_CONCURRENT_QUERIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxConcurrentQueries = n
		}
	}
	if v := os.Getenv("SP_ANALYTICS_SNAPSHOT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analytics.SnapshotInterval = d
		}
	}
	if v := os.Getenv("SP_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("SP_CORPUS_CONFIG_PATH"); v != "" {
		cfg.Corpus.ConfigPath = v
	}
	if v := os.Getenv("SP_CORPUS_REQUESTS_PATH"); v != "" {
		cfg.Corpus.RequestsPath = v
	}
	if v := os.Getenv("SP_CORPUS_ANSWERS_PATH"); v != "" {
		cfg.Corpus.AnswersPath = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
