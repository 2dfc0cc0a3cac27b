// Package loadtest drives a running server with batches of queries and
// summarizes the observed latencies.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	// Requests caps the number of batches sent. Zero runs until Duration.
	Requests int
	// RPS limits batches per second across all workers. Zero means no limit.
	RPS          float64
	Batch        []string
	MaxResponses int
	Client       *http.Client
}

// Report is the summary of one run.
type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	Elapsed     time.Duration
	StatusCodes map[int]int64
	Min         time.Duration
	Avg         time.Duration
	P50         time.Duration
	P90         time.Duration
	P99         time.Duration
	Max         time.Duration
	StdDev      time.Duration
}

func (r *Report) RequestsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}

type recorder struct {
	mu          sync.Mutex
	total       int64
	success     int64
	errors      int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

func (r *recorder) record(latency time.Duration, status int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if err != nil {
		r.errors++
		return
	}
	if status >= 200 && status < 300 {
		r.success++
	} else {
		r.errors++
	}
	r.latencies = append(r.latencies, latency)
	r.statusCodes[status]++
}

// Run posts cfg.Batch to /api/v1/search from cfg.Concurrency workers until
// the duration elapses, the request cap is reached, or ctx is cancelled.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if len(cfg.Batch) == 0 {
		return nil, errors.New("loadtest: empty query batch")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency * 2,
				MaxIdleConnsPerHost: cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	body, err := json.Marshal(map[string]any{
		"requests":      cfg.Batch,
		"max_responses": cfg.MaxResponses,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}
	url := cfg.BaseURL + "/api/v1/search"

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	rec := &recorder{statusCodes: make(map[int]int64)}
	var issued sync.Mutex
	sent := 0
	next := func() bool {
		if cfg.Requests <= 0 {
			return true
		}
		issued.Lock()
		defer issued.Unlock()
		if sent >= cfg.Requests {
			return false
		}
		sent++
		return true
	}

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for ctx.Err() == nil && next() {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return nil
					}
				}
				latency, status, err := post(ctx, client, url, body)
				if err != nil && ctx.Err() != nil {
					return nil
				}
				rec.record(latency, status, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return summarize(rec, time.Since(start)), nil
}

func post(ctx context.Context, client *http.Client, url string, body []byte) (time.Duration, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return time.Since(start), resp.StatusCode, nil
}

func summarize(rec *recorder, elapsed time.Duration) *Report {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	report := &Report{
		Total:       rec.total,
		Success:     rec.success,
		Errors:      rec.errors,
		Elapsed:     elapsed,
		StatusCodes: make(map[int]int64, len(rec.statusCodes)),
	}
	for code, n := range rec.statusCodes {
		report.StatusCodes[code] = n
	}
	latencies := slices.Clone(rec.latencies)
	if len(latencies) == 0 {
		return report
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))
	var squares float64
	for _, l := range latencies {
		d := float64(l - avg)
		squares += d * d
	}
	report.Min = latencies[0]
	report.Max = latencies[len(latencies)-1]
	report.Avg = avg
	report.P50 = Percentile(latencies, 50)
	report.P90 = Percentile(latencies, 90)
	report.P99 = Percentile(latencies, 99)
	report.StdDev = time.Duration(math.Sqrt(squares / float64(len(latencies))))
	return report
}

// Percentile uses the nearest-rank method on an ascending slice.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
