package config

import "time"

// Config holds runtime settings for the offline sync client.
//
// Paths beginning with "/" are resolved against APIBaseURL by the transport.
// OnlineCheckInterval is how often the connectivity watcher probes the
// backend; VerificationTTL is how long stored verification attempts remain
// replayable.
type Config struct {
	APIBaseURL          string
	HealthPath          string
	VerifyPath          string
	EventsPath          string
	NotificationsPath   string
	DatabasePath        string
	DataDir             string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	VerificationTTL     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.HealthPath = "/api/health"
	c.VerifyPath = "/api/auth/verify"
	c.EventsPath = "/api/events"
	c.NotificationsPath = "/api/notifications"
	c.DatabasePath = "offline.db"
	c.DataDir = "offline-data"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.VerificationTTL = 24 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
