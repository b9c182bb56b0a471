package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Addr != ":8000" {
		t.Errorf("expected addr :8000, got %q", cfg.Addr)
	}
	if cfg.DBPath != "lab.db" {
		t.Errorf("expected db path lab.db, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", cfg.LogLevel)
	}
	if cfg.AuthMode != "none" || cfg.TraceMode != "none" {
		t.Errorf("expected auth and trace off by default, got %q/%q", cfg.AuthMode, cfg.TraceMode)
	}
	if cfg.RateRPS != 0 {
		t.Errorf("expected rate limiting off by default, got %v", cfg.RateRPS)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfigFile(t, `
addr: ":9000"
db_path: data/todo.db
log_level: debug
rate_rps: 2.5
rate_burst: 10
cors_origins:
  - https://example.com
`)
	t.Setenv(EnvFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("expected addr :9000, got %q", cfg.Addr)
	}
	if cfg.DBPath != "data/todo.db" {
		t.Errorf("expected db path data/todo.db, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.RateRPS != 2.5 || cfg.RateBurst != 10 {
		t.Errorf("expected rate 2.5/10, got %v/%d", cfg.RateRPS, cfg.RateBurst)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://example.com" {
		t.Errorf("expected single origin, got %v", cfg.CORSOrigins)
	}
	// values the file does not mention keep their defaults
	if cfg.AuthMode != "none" {
		t.Errorf("expected default auth mode, got %q", cfg.AuthMode)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "addr: \":9000\"\n")
	t.Setenv(EnvFile, path)
	t.Setenv("TODO_ADDR", ":7777")
	t.Setenv("TODO_RATE_RPS", "5")
	t.Setenv("TODO_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7777" {
		t.Errorf("expected env to win, got %q", cfg.Addr)
	}
	if cfg.RateRPS != 5 {
		t.Errorf("expected rate 5, got %v", cfg.RateRPS)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != want[0] || cfg.CORSOrigins[1] != want[1] {
		t.Errorf("expected origins %v, got %v", want, cfg.CORSOrigins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvFile, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadBadEnvNumber(t *testing.T) {
	t.Setenv("TODO_RATE_RPS", "fast")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric TODO_RATE_RPS")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"apikey without key", func(c *Config) { c.AuthMode = "apikey" }},
		{"bearer without token", func(c *Config) { c.AuthMode = "bearer" }},
		{"jwt without secret", func(c *Config) { c.AuthMode = "jwt" }},
		{"unknown auth mode", func(c *Config) { c.AuthMode = "basic" }},
		{"otlp without endpoint", func(c *Config) { c.TraceMode = "otlp" }},
		{"unknown trace mode", func(c *Config) { c.TraceMode = "jaeger" }},
		{"negative rate", func(c *Config) { c.RateRPS = -1 }},
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsConfiguredModes(t *testing.T) {
	cfg := Default()
	cfg.AuthMode = "jwt"
	cfg.JWTSecret = "s3cret"
	cfg.TraceMode = "otlp"
	cfg.OTLPEndpoint = "collector:4318"
	cfg.RateRPS = 10
	cfg.RateBurst = 20

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to validate, got %v", err)
	}
}
