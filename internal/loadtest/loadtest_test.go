package loadtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, time.Millisecond},
		{50, 50 * time.Millisecond},
		{90, 90 * time.Millisecond},
		{99, 99 * time.Millisecond},
		{100, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := Percentile(sorted, tt.p); got != tt.want {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil) = %v", got)
	}
}

func TestRunRequestCap(t *testing.T) {
	var calls atomic.Int64
	var lastBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/search" {
			http.NotFound(w, r)
			return
		}
		n := calls.Add(1)
		if n == 1 {
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
		}
		if n%5 == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"answers":{}}`))
	}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		BaseURL:      srv.URL,
		Concurrency:  4,
		Duration:     10 * time.Second,
		Requests:     20,
		Batch:        []string{"milk water"},
		MaxResponses: 5,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != 20 || calls.Load() != 20 {
		t.Fatalf("total = %d, server calls = %d, want 20", report.Total, calls.Load())
	}
	if diff := cmp.Diff(report.StatusCodes, map[int]int64{200: 16, 429: 4}); diff != "" {
		t.Errorf("status codes mismatch (-got +want)\n%s", diff)
	}
	if report.Success != 16 || report.Errors != 4 {
		t.Errorf("success/errors = %d/%d", report.Success, report.Errors)
	}
	if report.Min > report.P50 || report.P50 > report.P99 || report.P99 > report.Max {
		t.Errorf("latencies out of order: %+v", report)
	}
	if diff := cmp.Diff(lastBody, map[string]any{"requests": []any{"milk water"}, "max_responses": float64(5)}); diff != "" {
		t.Errorf("request body mismatch (-got +want)\n%s", diff)
	}
}

func TestRunUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	report, err := Run(context.Background(), Config{BaseURL: url, Requests: 3, Batch: []string{"a"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != 3 || report.Errors != 3 || len(report.StatusCodes) != 0 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	if _, err := Run(context.Background(), Config{BaseURL: "http://unused"}); err == nil {
		t.Error("expected error for empty batch")
	}
}
