// Package apikey validates the API keys guarding the mutation endpoints.
// Only SHA-256 digests of the keys are configured; raw keys are generated
// once and handed to the operator.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

var (
	ErrMissingKey = fmt.Errorf("%w: missing api key", apperrors.ErrUnauthorized)
	ErrInvalidKey = fmt.Errorf("%w: invalid api key", apperrors.ErrUnauthorized)
)

type Validator struct {
	hashes [][]byte
	logger *slog.Logger
}

// NewValidator accepts hex digests as produced by HashKey.
func NewValidator(hashes []string) (*Validator, error) {
	v := &Validator{logger: slog.Default().With("component", "apikey-validator")}
	for _, h := range hashes {
		digest, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(h)))
		if err != nil || len(digest) != sha256.Size {
			return nil, fmt.Errorf("api key hash %q is not a sha-256 hex digest", h)
		}
		v.hashes = append(v.hashes, digest)
	}
	return v, nil
}

// Enabled reports whether any key is configured.
func (v *Validator) Enabled() bool { return len(v.hashes) > 0 }

// Validate compares the digest of rawKey against every configured digest in
// constant time.
func (v *Validator) Validate(_ context.Context, rawKey string) error {
	if rawKey == "" {
		return ErrMissingKey
	}
	sum := sha256.Sum256([]byte(rawKey))
	match := 0
	for _, h := range v.hashes {
		match |= subtle.ConstantTimeCompare(sum[:], h)
	}
	if match != 1 {
		v.logger.Warn("rejected api key")
		return ErrInvalidKey
	}
	return nil
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Generate returns a random 32-byte hex key and its digest.
func Generate() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generating api key: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, HashKey(raw), nil
}
