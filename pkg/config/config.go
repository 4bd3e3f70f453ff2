package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for applytrack.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"APPLYTRACK_ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Store   StoreConfig   `yaml:"store"`
	Render  RenderConfig  `yaml:"render"`
	AI      AIConfig      `yaml:"ai"`
	Metrics MetricsConfig `yaml:"metrics"`

	// CredentialsKey encrypts the Gemini API key at rest. Any non-empty string
	// works; a base64-encoded 32-byte key is used directly.
	// Generate with: openssl rand -base64 32
	// When empty the key is stored as plain text, as older versions did.
	CredentialsKey string `yaml:"-" env:"APPLYTRACK_CREDENTIALS_KEY"` // Secret - not in YAML
}

// StoreConfig holds settings for the local SQLite store.
type StoreConfig struct {
	Path          string `yaml:"path" env:"APPLYTRACK_DB" env-default:"jobapplicator.db"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" env:"APPLYTRACK_DB_BUSY_TIMEOUT_MS" env-default:"5000"`
}

// BusyTimeout returns the busy timeout as a duration.
func (c *StoreConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

// RenderConfig holds template rendering settings.
type RenderConfig struct {
	// DateLayout is the Go time layout used for the {{Date}} placeholder.
	DateLayout string `yaml:"date_layout" env:"APPLYTRACK_DATE_LAYOUT" env-default:"02.01.2006"`
}

// AIConfig holds process-level AI client settings. Provider choice, model and
// API key live in the store (AiSettings), not here.
type AIConfig struct {
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"APPLYTRACK_AI_TIMEOUT_SECONDS" env-default:"120"`
	// GeminiBaseURL overrides the Gemini API endpoint (proxies, tests).
	GeminiBaseURL string `yaml:"gemini_base_url" env:"APPLYTRACK_GEMINI_BASE_URL" env-default:""`
}

// RequestTimeout returns the per-request AI timeout.
func (c *AIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MetricsConfig controls metric export. The CLI is short-lived, so counters are
// written to a node_exporter textfile on exit instead of being served.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"APPLYTRACK_METRICS_TEXTFILE" env-default:""`
}

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error: defaults and environment variables apply.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.BusyTimeoutMS < 0 {
		return fmt.Errorf("store.busy_timeout_ms must not be negative, got %d", c.Store.BusyTimeoutMS)
	}
	if c.Render.DateLayout == "" {
		return fmt.Errorf("render.date_layout must not be empty")
	}
	if c.AI.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("ai.request_timeout_seconds must be positive, got %d", c.AI.RequestTimeoutSeconds)
	}
	return nil
}
