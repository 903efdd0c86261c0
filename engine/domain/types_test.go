package domain

import (
	"reflect"
	"testing"
)

func TestSplitParts(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"7J065-85200, 9L200-54321", []string{"7J065-85200", "9L200-54321"}},
		{"7J065-85200,nan, 9L200-54321", []string{"7J065-85200", "9L200-54321"}},
		{"NaN, nan ,NAN", nil},
		{"", nil},
		{" , , ", nil},
		{"A, A, B", []string{"A", "A", "B"}}, // duplicates preserved
		{" single-token ", []string{"single-token"}},
	}
	for _, tt := range tests {
		got := SplitParts(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitParts(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.81, TierHigh},
		{0.80001, TierHigh},
		{0.8, TierMedium}, // strict boundary
		{0.60001, TierMedium},
		{0.6, TierLow}, // strict boundary
		{0.0, TierLow},
	}
	for _, tt := range tests {
		if got := Tier(tt.in); got != tt.want {
			t.Errorf("Tier(%g) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEmbeddingUsed(t *testing.T) {
	s := &PipelineState{}
	if s.EmbeddingUsed() {
		t.Error("nil embedding should not count as used")
	}
	s.Embedding = make([]float32, 8)
	if s.EmbeddingUsed() {
		t.Error("all-zero embedding should not count as used")
	}
	s.Embedding[3] = 0.1
	if !s.EmbeddingUsed() {
		t.Error("non-zero embedding should count as used")
	}
}

func TestSeriesFamilies(t *testing.T) {
	fams := SeriesFamilies()
	if len(fams) != len(SupportedSeries) {
		t.Fatalf("expected %d families, got %d", len(SupportedSeries), len(fams))
	}
	for i := 1; i < len(fams); i++ {
		if fams[i-1] >= fams[i] {
			t.Fatalf("families not sorted: %v", fams)
		}
	}
}
