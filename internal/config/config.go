// Package config loads the tool configuration. The project manifest describes
// what to build; this file describes where and how: cache location, output
// layout, observability. Override order is deterministic and documented:
// CLI flag > environment variable > config file > built-in default.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the project root.
const DefaultFileName = "cachebuild.yaml"

// Environment variables consulted between CLI flags and the config file.
const (
	EnvCacheDir  = "CACHEBUILD_CACHE_DIR"
	EnvOutputDir = "CACHEBUILD_OUTPUT_DIR"
)

// Config is the tool configuration.
type Config struct {
	// CacheDir is the root of the dependency cache.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// OutputDir is where built artifacts land, namespaced per platform.
	OutputDir string `yaml:"output_dir,omitempty"`
	// WorkspaceDir is the base for ephemeral source snapshots. Empty means
	// the system temp directory.
	WorkspaceDir string `yaml:"workspace_dir,omitempty"`

	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Events  EventsConfig  `yaml:"events,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty"`
	GC      GCConfig      `yaml:"gc,omitempty"`
}

// MetricsConfig enables the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EventsConfig enables build-event publishing over NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// GCConfig tunes cache pruning.
type GCConfig struct {
	// Retention is how long unused cache entries are kept.
	Retention time.Duration `yaml:"retention,omitempty"`
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist. A .env/.env.local file in the working directory is loaded
// first (existing process environment wins), and environment variables are
// expanded inside the YAML content.
func Load(path string) (*Config, error) {
	loadDotEnv()

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No config file, using defaults", slog.String("path", path))
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if err := godotenv.Load(name); err == nil {
			slog.Debug("Loaded environment file", slog.String("path", name))
			return
		}
	}
}

// ResolveCacheDir applies the override order for the cache directory.
func ResolveCacheDir(cliValue string, cfg *Config) string {
	if cliValue != "" {
		return cliValue
	}
	if env := os.Getenv(EnvCacheDir); env != "" {
		return env
	}
	return cfg.CacheDir
}

// ResolveOutputDir applies the override order for the output directory.
func ResolveOutputDir(cliValue string, cfg *Config) string {
	if cliValue != "" {
		return cliValue
	}
	if env := os.Getenv(EnvOutputDir); env != "" {
		return env
	}
	return cfg.OutputDir
}
