package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/converter"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/loadtest"
)

var (
	loadURL         string
	loadConcurrency int
	loadDuration    time.Duration
	loadRequests    int
	loadRPS         float64
	loadQueries     []string
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Send query batches to a running server and report latencies",
	Long: `POSTs the same batch to /api/v1/search from several workers. The batch
is built from --query flags, or read from requests.json when none are given.`,
	Args: cobra.NoArgs,
	RunE: runLoadtest,
}

func init() {
	flags := loadtestCmd.Flags()
	flags.StringVar(&loadURL, "url", "http://localhost:8080", "base URL of the server")
	flags.IntVar(&loadConcurrency, "concurrency", 10, "number of concurrent workers")
	flags.DurationVar(&loadDuration, "duration", 30*time.Second, "how long to run")
	flags.IntVar(&loadRequests, "requests", 0, "stop after this many batches (0 = until --duration)")
	flags.Float64Var(&loadRPS, "rps", 0, "batches per second across all workers (0 = unlimited)")
	flags.StringArrayVarP(&loadQueries, "query", "q", nil, "query to include in the batch (repeatable)")
	rootCmd.AddCommand(loadtestCmd)
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batch := loadQueries
	limit := cfg.Search.MaxResponses
	if len(batch) == 0 {
		conv, err := converter.New(cfg.Corpus.ConfigPath, cfg.Corpus.RequestsPath, cfg.Corpus.AnswersPath)
		if err != nil {
			return fmt.Errorf("no --query given and job files unreadable: %w", err)
		}
		if batch, err = conv.Requests(); err != nil {
			return err
		}
		limit = conv.ResponsesLimit()
	}
	if len(batch) == 0 {
		return errors.New("nothing to send: the query batch is empty")
	}

	cmd.Printf("target %s, %d workers, %s, %d queries per batch\n", loadURL, loadConcurrency, loadDuration, len(batch))
	report, err := loadtest.Run(cmd.Context(), loadtest.Config{
		BaseURL:      loadURL,
		Concurrency:  loadConcurrency,
		Duration:     loadDuration,
		Requests:     loadRequests,
		RPS:          loadRPS,
		Batch:        batch,
		MaxResponses: limit,
	})
	if err != nil {
		return err
	}

	cmd.Printf("requests: %d  ok: %d  errors: %d  rps: %.2f\n",
		report.Total, report.Success, report.Errors, report.RequestsPerSecond())
	cmd.Printf("latency min %s  avg %s  p50 %s  p90 %s  p99 %s  max %s  stddev %s\n",
		report.Min, report.Avg, report.P50, report.P90, report.P99, report.Max, report.StdDev)
	codes := make([]int, 0, len(report.StatusCodes))
	for code := range report.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		cmd.Printf("  %d: %d\n", code, report.StatusCodes[code])
	}
	if report.Total == 0 {
		return errors.New("no requests completed; is the server running?")
	}
	return nil
}
