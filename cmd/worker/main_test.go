package main

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfig()
	if cfg.NATSURL != nats.DefaultURL {
		t.Fatalf("expected default NATS URL, got %s", cfg.NATSURL)
	}
	if cfg.MetricsPort != 9093 {
		t.Fatalf("expected default metrics port 9093, got %d", cfg.MetricsPort)
	}
	if cfg.RateLimit != 5 || cfg.RateBurst != 10 {
		t.Fatalf("expected default rate 5/burst 10, got %g/%d", cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.JobTimeout != 2*time.Minute {
		t.Fatalf("expected default job timeout 2m, got %s", cfg.JobTimeout)
	}
}

func TestEnvOrFloat(t *testing.T) {
	t.Setenv("TEST_WORKER_FLOAT", "2.5")
	if v := envOrFloat("TEST_WORKER_FLOAT", 1); v != 2.5 {
		t.Fatalf("expected 2.5, got %g", v)
	}
	t.Setenv("TEST_WORKER_FLOAT_BAD", "fast")
	if v := envOrFloat("TEST_WORKER_FLOAT_BAD", 1); v != 1 {
		t.Fatalf("expected fallback 1, got %g", v)
	}
}

func TestEnvOrDuration(t *testing.T) {
	t.Setenv("TEST_WORKER_DUR", "90s")
	if v := envOrDuration("TEST_WORKER_DUR", time.Minute); v != 90*time.Second {
		t.Fatalf("expected 90s, got %s", v)
	}
	if v := envOrDuration("TEST_WORKER_DUR_MISSING", time.Minute); v != time.Minute {
		t.Fatalf("expected fallback 1m, got %s", v)
	}
}
