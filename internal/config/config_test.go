package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("ADDR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	t.Setenv("SESSION_LIFETIME", "")
	t.Setenv("SESSION_COOKIE_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Session.Lifetime != 12*time.Hour {
		t.Fatalf("Lifetime = %v, want 12h", cfg.Session.Lifetime)
	}
	if cfg.Session.CookieName != "greenplate_session" {
		t.Fatalf("CookieName = %q", cfg.Session.CookieName)
	}
	if cfg.Database.URL != "" {
		t.Fatalf("expected empty database URL, got %q", cfg.Database.URL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/greenplate")
	t.Setenv("SESSION_LIFETIME", "30m")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Database.URL != "postgres://localhost/greenplate" {
		t.Fatalf("URL = %q", cfg.Database.URL)
	}
	if cfg.Session.Lifetime != 30*time.Minute {
		t.Fatalf("Lifetime = %v", cfg.Session.Lifetime)
	}
	if !cfg.Session.CookieSecure {
		t.Fatal("expected secure cookie")
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Fatalf("MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("SESSION_COOKIE_SECURE", "definitely")
	t.Setenv("SESSION_LIFETIME", "later")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.MaxOpenConns != 0 {
		t.Fatalf("MaxOpenConns = %d, want 0", cfg.Database.MaxOpenConns)
	}
	if cfg.Session.CookieSecure {
		t.Fatal("expected insecure cookie fallback")
	}
	if cfg.Session.Lifetime != 12*time.Hour {
		t.Fatalf("Lifetime = %v, want fallback", cfg.Session.Lifetime)
	}
}
