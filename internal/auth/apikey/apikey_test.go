package apikey

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

func TestValidate(t *testing.T) {
	raw, hash, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(raw) != 64 || HashKey(raw) != hash {
		t.Fatalf("Generate returned %q / %q", raw, hash)
	}
	v, err := NewValidator([]string{HashKey("other"), hash})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	if !v.Enabled() {
		t.Error("validator with keys reports disabled")
	}

	ctx := context.Background()
	if err := v.Validate(ctx, raw); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
	if err := v.Validate(ctx, "other"); err != nil {
		t.Errorf("Validate(second key) = %v", err)
	}
	if err := v.Validate(ctx, "wrong"); !errors.Is(err, ErrInvalidKey) || !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("Validate(wrong) = %v", err)
	}
	if err := v.Validate(ctx, ""); !errors.Is(err, ErrMissingKey) {
		t.Errorf("Validate(empty) = %v", err)
	}
}

func TestNewValidatorRejectsBadHash(t *testing.T) {
	for _, h := range []string{"plain-secret", "abcd", HashKey("x") + "00"} {
		if _, err := NewValidator([]string{h}); err == nil {
			t.Errorf("NewValidator(%q) accepted", h)
		}
	}
	v, err := NewValidator(nil)
	if err != nil || v.Enabled() {
		t.Errorf("empty validator: %v, enabled %v", err, v.Enabled())
	}
}
