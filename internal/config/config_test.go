package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LockPeriod != 5*time.Minute {
		t.Fatalf("expected default lock period 5m, got %s", cfg.LockPeriod)
	}
	if cfg.ProgramID != defaultProgramID {
		t.Fatalf("unexpected program id %s", cfg.ProgramID)
	}
	if cfg.FaucetEnabled {
		t.Fatal("faucet must be disabled by default")
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadRequiresBackendsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL to fail")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/escrow")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing REDIS_URL to fail")
	}
}

func TestLoadLockPeriodOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOCK_DURATION", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LockPeriod != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.LockPeriod)
	}

	t.Setenv("LOCK_PERIOD_SECONDS", "30")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LockPeriod != 30*time.Second {
		t.Fatalf("seconds variable should win, got %s", cfg.LockPeriod)
	}

	t.Setenv("LOCK_PERIOD_SECONDS", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid lock period to fail")
	}
}

func TestLoadEscrowSettings(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ESCROW_RECORD_RENT", "1500")
	t.Setenv("FAUCET_ENABLED", "true")
	t.Setenv("FAUCET_MAX_PER_MINUTE", "2")
	t.Setenv("SIGNATURE_MAX_AGE", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RecordRent != 1500 || !cfg.FaucetEnabled || cfg.FaucetMaxPerMinute != 2 || cfg.SignatureMaxAge != 30*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("ESCROW_RECORD_RENT", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected negative rent to fail")
	}
}
