package config

import "time"

// Config holds runtime settings for the story sync client.
type Config struct {
	// APIBaseURL is the root of the story API, e.g. "https://api.example.com".
	APIBaseURL string

	// DatabasePath is the SQLite file holding the local cache and queue.
	DatabasePath string

	// OnlineCheckInterval is how often the client probes server reachability.
	OnlineCheckInterval time.Duration

	// SyncBackoffBase and SyncBackoffCap bound the exponential retry
	// schedule applied after a connectivity-restored trigger.
	SyncBackoffBase time.Duration
	SyncBackoffCap  time.Duration

	// SyncMaxRetries caps retry attempts per trigger.
	SyncMaxRetries uint64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "stories.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncBackoffBase = 2 * time.Second
	c.SyncBackoffCap = time.Minute
	c.SyncMaxRetries = 5
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
