package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		query    string
		terms    []string
		distinct []string
	}{
		{"", []string{}, []string{}},
		{"   ", []string{}, []string{}},
		{"milk water", []string{"milk", "water"}, []string{"milk", "water"}},
		{"sugar milk sugar", []string{"sugar", "milk", "sugar"}, []string{"sugar", "milk"}},
		{"AND or NOT", []string{"AND", "or", "NOT"}, []string{"AND", "or", "NOT"}},
		{"Milk milk", []string{"Milk", "milk"}, []string{"Milk", "milk"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			plan := Parse(tt.query)
			if plan.RawQuery != tt.query {
				t.Errorf("RawQuery = %q", plan.RawQuery)
			}
			if diff := cmp.Diff(plan.Terms, tt.terms); diff != "" {
				t.Errorf("Terms mismatch (-got +want)\n%s", diff)
			}
			if diff := cmp.Diff(plan.Distinct(), tt.distinct); diff != "" {
				t.Errorf("Distinct mismatch (-got +want)\n%s", diff)
			}
		})
	}
}
