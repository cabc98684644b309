package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.Auth.BackendTimeout != 5*time.Second {
		t.Fatalf("expected 5s backend timeout, got %v", cfg.Auth.BackendTimeout)
	}
	if cfg.Auth.ProbeInterval != 0 {
		t.Fatalf("expected no probe interval, got %v", cfg.Auth.ProbeInterval)
	}
	if cfg.Auth.AllowDemoLogin || cfg.Auth.StrictPersistence {
		t.Fatal("demo login and strict persistence must default to false")
	}
	if cfg.Content.APIKeyHeader != "X-API-Key" {
		t.Fatalf("expected X-API-Key header, got %q", cfg.Content.APIKeyHeader)
	}
	if !cfg.Database.Migrate {
		t.Fatal("expected migrations enabled by default")
	}
	if cfg.Mongo.URI != "" || cfg.Redis.Addr != "" {
		t.Fatal("optional backends must default to disabled")
	}
	if cfg.Redis.LoginMaxFailures != 5 || cfg.Redis.LoginLockout != 15*time.Minute {
		t.Fatalf("unexpected throttle defaults: %d %v", cfg.Redis.LoginMaxFailures, cfg.Redis.LoginLockout)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":                "production",
		"DATABASE_URL":       "sqlite:/tmp/backoffice.db",
		"ALLOW_DEMO_LOGIN":   "true",
		"STRICT_PERSISTENCE": "true",
		"BACKEND_TIMEOUT":    "750ms",
		"PROBE_INTERVAL":     "1m",
		"REDIS_ADDR":         "localhost:6379",
		"LOGIN_MAX_FAILURES": "3",
	}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
	if cfg.Database.URL != "sqlite:/tmp/backoffice.db" {
		t.Fatalf("unexpected database url %q", cfg.Database.URL)
	}
	if !cfg.Auth.AllowDemoLogin || !cfg.Auth.StrictPersistence {
		t.Fatal("expected flags to be set")
	}
	if cfg.Auth.BackendTimeout != 750*time.Millisecond || cfg.Auth.ProbeInterval != time.Minute {
		t.Fatalf("unexpected durations %v %v", cfg.Auth.BackendTimeout, cfg.Auth.ProbeInterval)
	}
	if cfg.Redis.LoginMaxFailures != 3 {
		t.Fatalf("expected 3 max failures, got %d", cfg.Redis.LoginMaxFailures)
	}
}

func TestLoadFrom_Malformed(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"BACKEND_TIMEOUT": "soon",
	}))
	if err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
