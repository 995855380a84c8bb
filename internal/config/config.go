// Package config handles configuration file parsing and hot-reloading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
	_ "time/tzdata" // Asia/Tokyo on hosts without zoneinfo

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/zbuppan/internal/timeline"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
	Timeline    TimelineConfig    `yaml:"timeline"`
	Notify      NotifyConfig      `yaml:"notify"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Tracing     TracingConfig     `yaml:"tracing"`

	// debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// Internal: path to the config file
	path string

	mu sync.RWMutex
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	// sqlite or postgres
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// AuthConfig contains session and admin settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`

	// Glob patterns matched against the email at registration, e.g. "*@admin.example.com".
	AdminEmails []string `yaml:"admin_emails"`
}

// TimelineConfig contains anonymization and month boundary settings.
type TimelineConfig struct {
	Timezone string   `yaml:"timezone"`
	Shuffle  string   `yaml:"shuffle"`
	Names    []string `yaml:"names"`
}

// NotifyConfig contains notification sinks. Empty values disable a sink.
type NotifyConfig struct {
	TeamsWebhookURL string `yaml:"teams_webhook_url"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisChannel    string `yaml:"redis_channel"`
}

// IdempotencyConfig configures the purchase replay store.
type IdempotencyConfig struct {
	Path string `yaml:"path"`
	TTL  string `yaml:"ttl"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	// none, stdout or otlp
	Exporter string `yaml:"exporter"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "./data/zbuppan.db",
		},
		Auth: AuthConfig{
			TokenTTL:    "24h",
			AdminEmails: []string{},
		},
		Timeline: TimelineConfig{
			Timezone: "Asia/Tokyo",
			Shuffle:  string(timeline.ShuffleSort),
			Names:    slices.Clone(DefaultNames),
		},
		Notify: NotifyConfig{
			RedisChannel: "zbuppan.events",
		},
		Idempotency: IdempotencyConfig{
			Path: "./data/idempotency.db",
			TTL:  "24h",
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	cfg, err := parse(absPath)
	if err != nil {
		return nil, err
	}
	cfg.path = absPath

	return cfg, nil
}

func parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Reload reloads the configuration from disk. Environment overrides are
// applied to the new file as at startup. The running configuration is left
// untouched when the result does not validate.
func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	newCfg, err := parse(c.path)
	if err != nil {
		return err
	}
	newCfg.applyEnv()
	if err := newCfg.validate(); err != nil {
		return err
	}

	// Storage, server address and secrets are bound at startup and are not
	// swapped here.
	c.Auth.AdminEmails = newCfg.Auth.AdminEmails
	c.Timeline = newCfg.Timeline
	c.Notify.TeamsWebhookURL = newCfg.Notify.TeamsWebhookURL
	c.LogLevel = newCfg.LogLevel

	return nil
}

// Validate checks the values that would otherwise fail at first use.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validate()
}

func (c *Config) validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	for _, d := range []struct{ key, value string }{
		{"auth.token_ttl", c.Auth.TokenTTL},
		{"idempotency.ttl", c.Idempotency.TTL},
	} {
		if v, err := time.ParseDuration(d.value); err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration, got %q", d.key, d.value))
		}
	}

	for _, pattern := range c.Auth.AdminEmails {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("invalid auth.admin_emails pattern %q", pattern))
		}
	}

	if _, err := time.LoadLocation(c.Timeline.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timeline.timezone: %w", err))
	}

	switch timeline.ShuffleMode(c.Timeline.Shuffle) {
	case timeline.ShuffleSort, timeline.ShuffleFisherYates:
	default:
		errs = append(errs, fmt.Errorf("unknown timeline.shuffle %q", c.Timeline.Shuffle))
	}

	seen := make(map[string]bool, len(c.Timeline.Names))
	for _, name := range c.Timeline.Names {
		if name == "" {
			errs = append(errs, errors.New("timeline.names must not contain empty names"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate name %q in timeline.names", name))
		}
		seen[name] = true
	}

	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unknown tracing.exporter %q", c.Tracing.Exporter))
	}

	return errors.Join(errs...)
}

// GetTokenTTL parses and returns the session token lifetime.
func (c *Config) GetTokenTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetIdempotencyTTL parses and returns how long purchase keys are remembered.
func (c *Config) GetIdempotencyTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, err := time.ParseDuration(c.Idempotency.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetLocation returns the reference timezone for month boundaries.
func (c *Config) GetLocation() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()

	loc, err := time.LoadLocation(c.Timeline.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetAdminEmails returns a copy of the admin email patterns.
func (c *Config) GetAdminEmails() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.Auth.AdminEmails)
}

// GetTeamsWebhookURL returns the current webhook URL.
func (c *Config) GetTeamsWebhookURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notify.TeamsWebhookURL
}

// NewAssigner builds an anonymous name assigner from the current timeline
// settings. Call it per request so reloaded pools take effect.
func (c *Config) NewAssigner() *timeline.Assigner {
	c.mu.RLock()
	pool := c.Timeline.Names
	mode := timeline.ShuffleMode(c.Timeline.Shuffle)
	c.mu.RUnlock()

	return timeline.NewAssigner(pool, mode, c.GetLocation())
}
