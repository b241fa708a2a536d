package config

import (
	"strings"
	"testing"
	"time"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PASSGATE_TOKEN_SECRET", validSecret)
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("unexpected access TTL %v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 168*time.Hour {
		t.Fatalf("unexpected refresh TTL %v", cfg.RefreshTTL)
	}
	if !cfg.SeedInvitations {
		t.Fatal("seeding must default to on")
	}
}

func TestLoadOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PASSGATE_ADDR", ":9090")
	t.Setenv("PASSGATE_ACCESS_TTL", "5m")
	t.Setenv("PASSGATE_REFRESH_TTL", "24h")
	t.Setenv("PASSGATE_SEED_INVITATIONS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.AccessTTL != 5*time.Minute || cfg.RefreshTTL != 24*time.Hour {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SeedInvitations {
		t.Fatal("expected seeding off")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("PASSGATE_TOKEN_SECRET", "short")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PASSGATE_TOKEN_SECRET") {
		t.Fatalf("expected secret length error, got %v", err)
	}
}

func TestLoadRejectsInvertedTTLs(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PASSGATE_ACCESS_TTL", "48h")
	t.Setenv("PASSGATE_REFRESH_TTL", "24h")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for access TTL >= refresh TTL")
	}
}

func TestLoadRejectsDualBackends(t *testing.T) {
	setValidEnv(t)
	t.Setenv("PASSGATE_PG_DSN", "postgres://localhost/passgate")
	t.Setenv("PASSGATE_REDIS_ADDR", "localhost:6379")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when both backends are configured")
	}
}
