package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("port = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("token ttl = %s, want 24h", cfg.TokenTTL)
	}
	if cfg.RateLimitMax != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Errorf("rate limit = %d/%s, want 100/15m", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	// Dev deployments get a placeholder key.
	if cfg.JWTSigningKey == "" {
		t.Error("dev signing key empty")
	}
}

func TestProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("err = %v, want ErrMissingSigningKey", err)
	}

	t.Setenv("JWT_SIGNING_KEY", "real-production-key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with key: %v", err)
	}
	if !cfg.Production() {
		t.Error("Production() = false for APP_ENV=production")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("SEED_DEMO_DATA", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("ttl = %s, want 1h", cfg.TokenTTL)
	}
	if cfg.RateLimitMax != 5 {
		t.Errorf("rate limit max = %d, want 5", cfg.RateLimitMax)
	}
	if cfg.SeedDemoData {
		t.Error("seed demo data = true, want false")
	}
}
