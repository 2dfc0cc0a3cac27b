// Package validator checks index update events before they are published
// or applied.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ingestion"
)

const maxTextLength = 1 << 20

// ValidationError holds one message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func ValidateUpdate(event ingestion.UpdateEvent) error {
	errs := make(map[string]string)
	switch {
	case event.DocID == nil:
		errs["doc_id"] = "doc_id is required"
	case *event.DocID < 0:
		errs["doc_id"] = fmt.Sprintf("doc_id must not be negative, got %d", *event.DocID)
	}
	if event.Word == "" && strings.TrimSpace(event.Text) == "" {
		errs["text"] = "either text or word is required"
	}
	if strings.ContainsFunc(event.Word, unicode.IsSpace) {
		errs["word"] = "word must be a single term"
	}
	if len(event.Text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
