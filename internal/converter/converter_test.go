package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "file001.txt", "milk water")
	configPath := writeFile(t, dir, "config.json", `{
		"config": {"name": "SkillboxSearchEngine", "version": "0.1", "max_responses": 3},
		"files": ["`+doc+`", "`+filepath.Join(dir, "missing.txt")+`"]
	}`)
	requestsPath := writeFile(t, dir, "requests.json", `{"requests": ["milk water", "sugar"]}`)

	c, err := New(configPath, requestsPath, filepath.Join(dir, "answers.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Name() != "SkillboxSearchEngine" || c.Version() != "0.1" || c.ResponsesLimit() != 3 {
		t.Errorf("unexpected header: %q %q %d", c.Name(), c.Version(), c.ResponsesLimit())
	}

	docs, err := c.TextDocuments(context.Background())
	if err != nil {
		t.Fatalf("TextDocuments: %v", err)
	}
	if diff := cmp.Diff(docs, []string{"milk water", ""}); diff != "" {
		t.Errorf("documents mismatch (-got +want)\n%s", diff)
	}

	requests, err := c.Requests()
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	if diff := cmp.Diff(requests, []string{"milk water", "sugar"}); diff != "" {
		t.Errorf("requests mismatch (-got +want)\n%s", diff)
	}
}

func TestNewDefaultsMaxResponses(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.json", `{"config": {"name": "n", "version": "v"}, "files": []}`)
	c, err := New(configPath, "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ResponsesLimit() != DefaultMaxResponses {
		t.Errorf("ResponsesLimit = %d, want %d", c.ResponsesLimit(), DefaultMaxResponses)
	}
}

func TestNewErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"malformed", `{"config":`, apperrors.ErrMalformedFile},
		{"no config", `{"files": []}`, apperrors.ErrMissingField},
		{"no files", `{"config": {"name": "n"}}`, apperrors.ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".json", tt.content)
			if _, err := New(path, "", ""); !errors.Is(err, tt.want) {
				t.Errorf("New() = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := New(filepath.Join(dir, "absent.json"), "", ""); !errors.Is(err, apperrors.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestRequestsErrors(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.json", `{"config": {}, "files": []}`)

	c, err := New(configPath, filepath.Join(dir, "absent.json"), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Requests(); !errors.Is(err, apperrors.ErrRequestsMissing) {
		t.Errorf("expected ErrRequestsMissing, got %v", err)
	}

	c, _ = New(configPath, writeFile(t, dir, "requests.json", `{"other": []}`), "")
	if _, err := c.Requests(); !errors.Is(err, apperrors.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestPutAnswers(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.json", `{"config": {}, "files": []}`)
	answersPath := filepath.Join(dir, "answers.json")
	c, err := New(configPath, "", answersPath)
	if err != nil {
		t.Fatal(err)
	}

	answers := [][]ranker.RelativeIndex{
		{{DocID: 2, Rank: 1}, {DocID: 0, Rank: 0.7}},
		{},
	}
	if err := c.PutAnswers(answers); err != nil {
		t.Fatalf("PutAnswers: %v", err)
	}
	got, err := os.ReadFile(answersPath)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
    "answers": {
        "request001": {
            "relevance": [
                {
                    "docid": 2,
                    "rank": 1
                },
                {
                    "docid": 0,
                    "rank": 0.7
                }
            ],
            "result": true
        },
        "request002": {
            "result": false
        }
    }
}
`
	if diff := cmp.Diff(string(got), want); diff != "" {
		t.Errorf("answers.json mismatch (-got +want)\n%s", diff)
	}
}

func TestRequestID(t *testing.T) {
	for i, want := range map[int]string{0: "request001", 9: "request010", 998: "request999", 999: "request1000"} {
		if got := RequestID(i); got != want {
			t.Errorf("RequestID(%d) = %q, want %q", i, got, want)
		}
	}
}
