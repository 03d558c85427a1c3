package config

import "testing"

func TestParseSources(t *testing.T) {
	got := parseSources(" edmunds=https://api.edmunds.test , broken, =nope, carquery=https://cq.test")
	if len(got) != 2 {
		t.Fatalf("expected 2 sources, got %d: %v", len(got), got)
	}
	if got["edmunds"] != "https://api.edmunds.test" {
		t.Errorf("edmunds: got %q", got["edmunds"])
	}
	if got["carquery"] != "https://cq.test" {
		t.Errorf("carquery: got %q", got["carquery"])
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MAX_CONCURRENCY", "7")
	t.Setenv("RATE_LIMIT_MS", "not-a-number")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("RUN_HISTORY", "5")

	cfg := Load()
	if cfg.MaxConcurrency != 7 {
		t.Errorf("MaxConcurrency: got %d, want 7", cfg.MaxConcurrency)
	}
	if cfg.RateLimitMs != 2000 {
		t.Errorf("RateLimitMs: got %d, want fallback 2000", cfg.RateLimitMs)
	}
	if cfg.RunHistory != 5 {
		t.Errorf("RunHistory: got %d, want 5", cfg.RunHistory)
	}
	want := "host=db.internal port=5432 user=carscout password=carscout dbname=carscout sslmode=disable"
	if cfg.DSN() != want {
		t.Errorf("DSN: got %q, want %q", cfg.DSN(), want)
	}
}
