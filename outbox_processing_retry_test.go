package main

import (
	"testing"
	"time"
)

func TestOutboxProcessBackoffDoublesAndCaps(t *testing.T) {
	cfg := outboxProcessRetryConfig{
		maxAttempts: 10,
		baseBackoff: 5 * time.Second,
		maxBackoff:  10 * time.Minute,
	}
	cases := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{5, 80 * time.Second},
		{7, 320 * time.Second},
		{8, 10 * time.Minute},
		// Exponents past int64 range must still cap, never wrap negative.
		{50, 10 * time.Minute},
		{64, 10 * time.Minute},
		{1000, 10 * time.Minute},
	}
	for _, tc := range cases {
		got := outboxProcessBackoff(tc.attempt, cfg)
		if got != tc.expected {
			t.Errorf("attempt %d: backoff = %s, expected %s", tc.attempt, got, tc.expected)
		}
		if got <= 0 {
			t.Errorf("attempt %d: backoff %s is not positive", tc.attempt, got)
		}
	}
}

func TestGetOutboxProcessRetryConfigEnvOverrides(t *testing.T) {
	t.Setenv("OUTBOX_PROCESS_MAX_ATTEMPTS", "3")
	t.Setenv("OUTBOX_PROCESS_BASE_BACKOFF_SECONDS", "1")
	t.Setenv("OUTBOX_PROCESS_MAX_BACKOFF_SECONDS", "30")

	cfg := getOutboxProcessRetryConfig()
	if cfg.maxAttempts != 3 {
		t.Fatalf("maxAttempts = %d", cfg.maxAttempts)
	}
	if cfg.baseBackoff != time.Second {
		t.Fatalf("baseBackoff = %s", cfg.baseBackoff)
	}
	if cfg.maxBackoff != 30*time.Second {
		t.Fatalf("maxBackoff = %s", cfg.maxBackoff)
	}

	// Garbage values fall back to the defaults.
	t.Setenv("OUTBOX_PROCESS_MAX_ATTEMPTS", "zero")
	if got := getOutboxProcessRetryConfig().maxAttempts; got != 10 {
		t.Fatalf("bad env must keep default maxAttempts, got %d", got)
	}
}
