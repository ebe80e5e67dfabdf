package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Documents DocumentsConfig `yaml:"documents" toml:"documents"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`

	// MaxUploadBytes caps PUT bodies; zero disables the cap.
	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" default:"67108864" yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	EventBuffer     int           `envconfig:"EVENT_BUFFER" default:"64" yaml:"event_buffer" toml:"event_buffer"`
}

// DocumentsConfig holds the sandboxed document root settings.
type DocumentsConfig struct {
	Root          string   `envconfig:"DOCS_ROOT" default:"." yaml:"root" toml:"root"`
	Tag           string   `envconfig:"DOCS_ROOT_TAG" default:"root" yaml:"tag" toml:"tag"`
	Title         string   `envconfig:"DOCS_TITLE" default:"Sandbox" yaml:"title" toml:"title"`
	Summary       string   `envconfig:"DOCS_SUMMARY" yaml:"summary" toml:"summary"`
	SearchLimit   int      `envconfig:"DOCS_SEARCH_LIMIT" default:"20" yaml:"search_limit" toml:"search_limit"`
	RecentLimit   int      `envconfig:"DOCS_RECENT_LIMIT" default:"5" yaml:"recent_limit" toml:"recent_limit"`
	ValidateNames bool     `envconfig:"DOCS_VALIDATE_NAMES" default:"true" yaml:"validate_names" toml:"validate_names"`
	Exclude       []string `envconfig:"DOCS_EXCLUDE" yaml:"exclude" toml:"exclude"`
	UsageSummary  bool     `envconfig:"DOCS_USAGE_SUMMARY" default:"true" yaml:"usage_summary" toml:"usage_summary"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// Rate limit scopes.
const (
	RateLimitPerClient = "client"
	RateLimitGlobal    = "global"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
	// Scope is "client" for one bucket per client IP or "global" for a
	// single bucket shared by every caller.
	Scope string `envconfig:"RATE_LIMIT_SCOPE" default:"client" yaml:"scope" toml:"scope"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Load loads configuration from environment variables, then applies the
// overlay file named by CONFIG_FILE if set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			MaxUploadBytes:  64 << 20,
			ShutdownTimeout: 10 * time.Second,
			EventBuffer:     64,
		},
		Documents: DocumentsConfig{
			Root:          ".",
			Tag:           "root",
			Title:         "Sandbox",
			SearchLimit:   20,
			RecentLimit:   5,
			ValidateNames: true,
			UsageSummary:  true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
			Scope:             RateLimitPerClient,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// ApplyFile overlays values from a YAML or TOML file. Keys absent from the
// file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port must not be empty"))
	}
	if c.Documents.Root == "" {
		errs = append(errs, errors.New("documents root must not be empty"))
	}
	if strings.Contains(c.Documents.Tag, ":") || c.Documents.Tag == "" {
		errs = append(errs, fmt.Errorf("invalid root tag %q", c.Documents.Tag))
	}
	if c.Documents.SearchLimit <= 0 {
		errs = append(errs, fmt.Errorf("search limit must be positive, got %d", c.Documents.SearchLimit))
	}
	if c.Documents.RecentLimit <= 0 {
		errs = append(errs, fmt.Errorf("recent limit must be positive, got %d", c.Documents.RecentLimit))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rate limit must be positive when enabled"))
	}
	switch c.RateLimit.Scope {
	case RateLimitPerClient, RateLimitGlobal:
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit scope %q", c.RateLimit.Scope))
	}
	return errors.Join(errs...)
}
