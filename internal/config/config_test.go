package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"GATE_THRESHOLD", "GATE_COOLDOWN", "GATE_QUIET_WINDOW",
		"GATE_TICK", "EMBEDDING_DIM", "DATABASE_MAX_OPEN_CONNS",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Gate.Threshold != 0.45 {
		t.Errorf("default threshold = %v, want 0.45", cfg.Gate.Threshold)
	}
	if cfg.Gate.Cooldown != 5*time.Minute {
		t.Errorf("default cooldown = %v, want 5m", cfg.Gate.Cooldown)
	}
	if cfg.Gate.Tick != 800*time.Millisecond {
		t.Errorf("default tick = %v, want 800ms", cfg.Gate.Tick)
	}
	if cfg.Embedding.Dim != 128 {
		t.Errorf("default embedding dim = %d, want 128", cfg.Embedding.Dim)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("default max open conns = %d, want 25", cfg.Database.MaxOpenConns)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GATE_THRESHOLD", "0.55")
	t.Setenv("GATE_COOLDOWN", "60s")
	t.Setenv("EMBEDDING_DIM", "512")

	cfg := Load()

	if cfg.Gate.Threshold != 0.55 {
		t.Errorf("threshold = %v, want 0.55", cfg.Gate.Threshold)
	}
	if cfg.Gate.Cooldown != time.Minute {
		t.Errorf("cooldown = %v, want 1m", cfg.Gate.Cooldown)
	}
	if cfg.Embedding.Dim != 512 {
		t.Errorf("embedding dim = %d, want 512", cfg.Embedding.Dim)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("GATE_THRESHOLD", "not-a-number")
	t.Setenv("GATE_COOLDOWN", "-5m")
	t.Setenv("EMBEDDING_DIM", "0")

	cfg := Load()

	if cfg.Gate.Threshold != 0.45 {
		t.Errorf("invalid threshold should fall back to 0.45, got %v", cfg.Gate.Threshold)
	}
	if cfg.Gate.Cooldown != 5*time.Minute {
		t.Errorf("negative cooldown should fall back to 5m, got %v", cfg.Gate.Cooldown)
	}
	if cfg.Embedding.Dim != 128 {
		t.Errorf("zero dim should fall back to 128, got %d", cfg.Embedding.Dim)
	}
}

func TestEmbeddedPlans(t *testing.T) {
	cfg := Load()

	if len(cfg.Plans.Plans) == 0 {
		t.Fatal("expected embedded plans to load")
	}

	plan := cfg.FindPlan("smart")
	if plan == nil {
		t.Fatal("expected plan 'smart' to exist")
	}
	if plan.PriceCents <= 0 {
		t.Errorf("plan price should be positive, got %d", plan.PriceCents)
	}

	if cfg.FindPlan("no-such-plan") != nil {
		t.Error("unknown plan id should return nil")
	}
}
