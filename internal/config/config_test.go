package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"MAX_ATTEMPTS_PER_TEST", "IDEMPOTENCY_WINDOW_SECONDS", "PASS_PERCENTAGE", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Attempt.MaxAttemptsPerTest != 15 {
		t.Fatalf("MaxAttemptsPerTest = %d, want 15", cfg.Attempt.MaxAttemptsPerTest)
	}
	if cfg.Attempt.IdempotencyWindow != 5*time.Second {
		t.Fatalf("IdempotencyWindow = %v, want 5s", cfg.Attempt.IdempotencyWindow)
	}
	if cfg.Attempt.PassPercentage != 40 {
		t.Fatalf("PassPercentage = %v, want 40", cfg.Attempt.PassPercentage)
	}
	if cfg.AllowedOrigins != nil {
		t.Fatalf("AllowedOrigins = %v, want nil", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_ATTEMPTS_PER_TEST", "3")
	t.Setenv("IDEMPOTENCY_WINDOW_SECONDS", "10")
	t.Setenv("RETRY_BASE_DELAY_MS", "5")
	t.Setenv("PASS_PERCENTAGE", "55.5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	if cfg.Attempt.MaxAttemptsPerTest != 3 {
		t.Errorf("MaxAttemptsPerTest = %d, want 3", cfg.Attempt.MaxAttemptsPerTest)
	}
	if cfg.Attempt.IdempotencyWindow != 10*time.Second {
		t.Errorf("IdempotencyWindow = %v, want 10s", cfg.Attempt.IdempotencyWindow)
	}
	if cfg.Attempt.RetryBaseDelay != 5*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 5ms", cfg.Attempt.RetryBaseDelay)
	}
	if cfg.Attempt.PassPercentage != 55.5 {
		t.Errorf("PassPercentage = %v, want 55.5", cfg.Attempt.PassPercentage)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_ATTEMPTS_PER_TEST", "many")
	t.Setenv("SUBMIT_GRACE_SECONDS", "-4")

	cfg := Load()
	if cfg.Attempt.MaxAttemptsPerTest != 15 {
		t.Errorf("MaxAttemptsPerTest = %d, want fallback 15", cfg.Attempt.MaxAttemptsPerTest)
	}
	if cfg.Attempt.SubmitGrace != 30*time.Second {
		t.Errorf("SubmitGrace = %v, want fallback 30s", cfg.Attempt.SubmitGrace)
	}
}
