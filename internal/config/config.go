// Package config resolves the server configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvFile names the environment variable pointing at a YAML config file.
const EnvFile = "TODO_CONFIG"

type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`
	// DBPath is the SQLite database file. The parent directory is
	// created on open, so a container can mount an empty volume.
	DBPath string `yaml:"db_path"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string `yaml:"cors_origins"`

	// RateRPS enables the global rate limiter when > 0.
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`

	// AuthMode is one of none, apikey, bearer, jwt.
	AuthMode    string `yaml:"auth_mode"`
	APIKey      string `yaml:"api_key"`
	BearerToken string `yaml:"bearer_token"`
	JWTSecret   string `yaml:"jwt_secret"`

	// TraceMode is one of none, stdout, otlp.
	TraceMode    string `yaml:"trace_mode"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// StaticDir is served at /static when the directory exists.
	StaticDir string `yaml:"static_dir"`
}

// Default returns the built-in configuration: a local server on :8000
// backed by lab.db, no auth, no rate limit, no tracing.
func Default() Config {
	return Config{
		Addr:        ":8000",
		DBPath:      "lab.db",
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
		AuthMode:    "none",
		TraceMode:   "none",
		StaticDir:   "static",
	}
}

// Load resolves the effective configuration. A file named by TODO_CONFIG
// must exist if set; environment variables override file values.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("TODO_ADDR", &cfg.Addr)
	setString("TODO_DB_PATH", &cfg.DBPath)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("TODO_AUTH_MODE", &cfg.AuthMode)
	setString("TODO_API_KEY", &cfg.APIKey)
	setString("TODO_BEARER_TOKEN", &cfg.BearerToken)
	setString("TODO_JWT_SECRET", &cfg.JWTSecret)
	setString("TODO_TRACE_MODE", &cfg.TraceMode)
	setString("TODO_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	setString("TODO_STATIC_DIR", &cfg.StaticDir)

	if v := os.Getenv("TODO_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}

	if v := os.Getenv("TODO_RATE_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TODO_RATE_RPS: %w", err)
		}
		cfg.RateRPS = rps
	}
	if v := os.Getenv("TODO_RATE_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TODO_RATE_BURST: %w", err)
		}
		cfg.RateBurst = burst
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q: want debug, info, warn, or error", c.LogLevel)
	}

	switch c.AuthMode {
	case "none":
	case "apikey":
		if c.APIKey == "" {
			return fmt.Errorf("auth_mode apikey requires api_key")
		}
	case "bearer":
		if c.BearerToken == "" {
			return fmt.Errorf("auth_mode bearer requires bearer_token")
		}
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("auth_mode jwt requires jwt_secret")
		}
	default:
		return fmt.Errorf("auth_mode %q: want none, apikey, bearer, or jwt", c.AuthMode)
	}

	switch c.TraceMode {
	case "none", "stdout":
	case "otlp":
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("trace_mode otlp requires otlp_endpoint")
		}
	default:
		return fmt.Errorf("trace_mode %q: want none, stdout, or otlp", c.TraceMode)
	}

	if c.RateRPS < 0 {
		return fmt.Errorf("rate_rps must not be negative")
	}
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	return nil
}
