// Package config loads runtime settings for the flitsync CLI.
//
// Sources are layered: built-in defaults, then an optional JSON file
// (-c/-config), then command-line flags. Later sources win.
package config

import "time"

// Config holds runtime settings for the flitsync CLI.
type Config struct {
	// ServerURL is the base URL of the classification and sync backend.
	ServerURL string
	// DatabaseDSN is the SQLite DSN of the local replica.
	DatabaseDSN string
	// DrainInterval is how often the run command drains the sync queue.
	DrainInterval time.Duration
	// RequestTimeout bounds a single backend call.
	RequestTimeout time.Duration
	// MaxRetries is the retry budget for new sync queue items.
	MaxRetries int
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "flitsync.db"
	c.DrainInterval = 30 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.MaxRetries = 3
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
