package main

import "testing"

func TestParseVector(t *testing.T) {
	vec, err := parseVector("[0.1, -0.2, 0.3]", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[1] != -0.2 {
		t.Fatalf("wrong vector: %v", vec)
	}
}

func TestParseVector_EmptyIsNil(t *testing.T) {
	vec, err := parseVector("", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec != nil {
		t.Fatalf("expected nil for empty text, got %v", vec)
	}
}

func TestParseVector_Malformed(t *testing.T) {
	if _, err := parseVector("[0.1, oops]", 3); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := parseVector("not json at all", 3); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseVector_DimsMismatch(t *testing.T) {
	if _, err := parseVector("[0.1, 0.2]", 3); err == nil {
		t.Fatal("expected dims mismatch error")
	}
}

func TestEnvOrInt(t *testing.T) {
	t.Setenv("TEST_BACKFILL_INT", "64")
	if v := envOrInt("TEST_BACKFILL_INT", 8); v != 64 {
		t.Fatalf("expected 64, got %d", v)
	}
	if v := envOrInt("TEST_BACKFILL_INT_MISSING", 8); v != 8 {
		t.Fatalf("expected fallback 8, got %d", v)
	}
}
