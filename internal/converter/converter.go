// Package converter reads the JSON job files of a batch search run and
// writes its answers.
//
// A job consists of three files:
//
//	config.json    {"config": {"name", "version", "max_responses"}, "files": [...]}
//	requests.json  {"requests": [...]}
//	answers.json   {"answers": {"request001": {"result": false}, ...}}
package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

const DefaultMaxResponses = 5

type configFile struct {
	Config *struct {
		Name         string `json:"name"`
		Version      string `json:"version"`
		MaxResponses *int   `json:"max_responses"`
	} `json:"config"`
	Files []string `json:"files"`
}

type requestsFile struct {
	Requests []string `json:"requests"`
}

// Answer is one entry of answers.json.
type Answer struct {
	Relevance []ranker.RelativeIndex `json:"relevance,omitempty"`
	Result    bool                   `json:"result"`
}

// Answers is the document written to answers.json, keyed by RequestID.
type Answers struct {
	Answers map[string]Answer `json:"answers"`
}

// NewAnswers keys every result list by its request id. An empty list is a
// negative answer.
func NewAnswers(answers [][]ranker.RelativeIndex) Answers {
	out := Answers{Answers: make(map[string]Answer, len(answers))}
	for i, relevance := range answers {
		if len(relevance) == 0 {
			out.Answers[RequestID(i)] = Answer{Result: false}
			continue
		}
		out.Answers[RequestID(i)] = Answer{Relevance: relevance, Result: true}
	}
	return out
}

type ConverterJSON struct {
	configPath   string
	requestsPath string
	answersPath  string

	name         string
	version      string
	maxResponses int
	files        []string
	logger       *slog.Logger
}

// New loads and validates configPath. requests.json is read lazily by
// Requests.
func New(configPath, requestsPath, answersPath string) (*ConverterJSON, error) {
	var cfg configFile
	if err := readJSON(configPath, &cfg, apperrors.ErrConfigMissing); err != nil {
		return nil, err
	}
	if cfg.Config == nil {
		return nil, fmt.Errorf("%w: %q in %s", apperrors.ErrMissingField, "config", configPath)
	}
	if cfg.Files == nil {
		return nil, fmt.Errorf("%w: %q in %s", apperrors.ErrMissingField, "files", configPath)
	}
	c := &ConverterJSON{
		configPath:   configPath,
		requestsPath: requestsPath,
		answersPath:  answersPath,
		name:         cfg.Config.Name,
		version:      cfg.Config.Version,
		maxResponses: DefaultMaxResponses,
		files:        cfg.Files,
		logger:       slog.Default().With("component", "converter"),
	}
	if cfg.Config.MaxResponses != nil {
		c.maxResponses = *cfg.Config.MaxResponses
	}
	return c, nil
}

func (c *ConverterJSON) Name() string { return c.name }

func (c *ConverterJSON) Version() string { return c.version }

func (c *ConverterJSON) ResponsesLimit() int { return c.maxResponses }

// Files returns the document paths in document id order.
func (c *ConverterJSON) Files() []string {
	out := make([]string, len(c.files))
	copy(out, c.files)
	return out
}

// TextDocuments reads every listed file. A file that cannot be read is
// logged and contributes an empty document, so ids stay positional.
func (c *ConverterJSON) TextDocuments(ctx context.Context) ([]string, error) {
	docs := make([]string, len(c.files))
	for i, path := range c.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			c.logger.Error("cannot read document", "doc_id", i, "path", path, "error", err)
			continue
		}
		docs[i] = string(data)
	}
	return docs, nil
}

// Requests reads the query list from requests.json.
func (c *ConverterJSON) Requests() ([]string, error) {
	var req requestsFile
	if err := readJSON(c.requestsPath, &req, apperrors.ErrRequestsMissing); err != nil {
		return nil, err
	}
	if req.Requests == nil {
		return nil, fmt.Errorf("%w: %q in %s", apperrors.ErrMissingField, "requests", c.requestsPath)
	}
	return req.Requests, nil
}

// PutAnswers writes answers.json, replacing any previous content.
func (c *ConverterJSON) PutAnswers(answers [][]ranker.RelativeIndex) error {
	data, err := MarshalAnswers(answers)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.answersPath, data, 0o644); err != nil {
		return fmt.Errorf("writing answers file %s: %w", c.answersPath, err)
	}
	c.logger.Info("answers written", "path", c.answersPath, "requests", len(answers))
	return nil
}

// MarshalAnswers renders answers in the answers.json layout with a four
// space indent.
func MarshalAnswers(answers [][]ranker.RelativeIndex) ([]byte, error) {
	data, err := json.MarshalIndent(NewAnswers(answers), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding answers: %w", err)
	}
	return append(data, '\n'), nil
}

// RequestID names the i-th (zero based) request: request001, request002, ...
func RequestID(i int) string {
	return fmt.Sprintf("request%03d", i+1)
}

func readJSON(path string, v interface{}, missing error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", missing, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedFile, path, err)
	}
	return nil
}
