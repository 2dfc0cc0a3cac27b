// Package cache stores search results in Redis keyed by the index
// generation, so a rebuild or a recorded word makes every earlier entry
// unreachable without an explicit flush.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store      Store
	ttl        time.Duration
	generation func() uint64
	breaker    *resilience.CircuitBreaker
	group      singleflight.Group
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
}

type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Breaker string `json:"breaker"`
}

// New returns a cache over store. generation reports the current index
// generation; breaker may be nil.
func New(store Store, ttl time.Duration, generation func() uint64, breaker *resilience.CircuitBreaker) *QueryCache {
	if generation == nil {
		generation = func() uint64 { return 0 }
	}
	return &QueryCache{
		store:      store,
		ttl:        ttl,
		generation: generation,
		breaker:    breaker,
		logger:     slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int) (*executor.SearchResult, bool) {
	key := c.buildKey(c.generation(), query, limit)
	var data string
	err := c.call(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	// the entry may have been stored for another spelling of the query
	result.Query = query
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, result *executor.SearchResult) {
	c.set(ctx, c.buildKey(c.generation(), query, limit), result)
}

func (c *QueryCache) set(ctx context.Context, key string, result *executor.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.call(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for query or computes and stores
// it. Concurrent misses on the same key share one computation. A cache
// failure never fails the query.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, limit); ok {
		return result, true, nil
	}
	gen := c.generation()
	key := c.buildKey(gen, query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		// a write landing during evaluation moves the generation on; the
		// result then belongs to no live key
		if c.generation() == gen {
			c.set(ctx, key, result)
		}
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	// shared by every caller of the key; each gets its own Query
	result := *val.(*executor.SearchResult)
	result.Query = query
	return &result, false, nil
}

// Invalidate deletes every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// StartPurger runs Invalidate in the background whenever the returned
// notify func is called, coalescing bursts of notifications into one
// purge. Entries of older generations are already unreachable; purging only
// frees their memory ahead of the TTL. The goroutine exits with ctx.
func (c *QueryCache) StartPurger(ctx context.Context) (notify func(context.Context, uint64)) {
	pending := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				if _, err := c.Invalidate(ctx); err != nil && ctx.Err() == nil {
					c.logger.Warn("background purge failed", "error", err)
				}
			}
		}
	}()
	return func(context.Context, uint64) {
		select {
		case pending <- struct{}{}:
		default:
		}
	}
}

func (c *QueryCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Breaker: "none"}
	if c.breaker != nil {
		s.Breaker = c.breaker.State().String()
	}
	return s
}

func (c *QueryCache) call(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

// buildKey hashes the generation, the whitespace-normalized query and the
// limit. Term order and repetition are kept since both change the answer's
// shape or scores.
func (c *QueryCache) buildKey(generation uint64, query string, limit int) string {
	normalized := strings.Join(strings.Fields(query), " ")
	raw := fmt.Sprintf("%d|%s|%d", generation, normalized, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// NewBreaker returns a breaker for the cache that does not count cache
// misses as failures.
func NewBreaker(onStateChange func(name string, from, to resilience.State)) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		IsFailure: func(err error) bool {
			return !pkgredis.IsNilError(err)
		},
		OnStateChange: onStateChange,
	})
}
