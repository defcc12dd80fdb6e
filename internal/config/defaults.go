package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	defaultOutputDir = "./out"
	defaultRetention = 30 * 24 * time.Hour
	defaultDebounce  = 500 * time.Millisecond
	defaultSubject   = "cachebuild.events"
)

func defaults() *Config {
	cfg := &Config{
		CacheDir:  defaultCacheDir(),
		OutputDir: defaultOutputDir,
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero values after unmarshalling, so a sparse config
// file inherits every default it does not override.
func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = defaultDebounce
	}
	if c.GC.Retention <= 0 {
		c.GC.Retention = defaultRetention
	}
	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		c.Events.Subject = defaultSubject
	}
}

func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "cachebuild")
	}
	return filepath.Join(os.TempDir(), "cachebuild-cache")
}
