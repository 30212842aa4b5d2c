// Package config defines station and relay configuration and its loading.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"strings"
	"time"
)

// Config contains process configuration for both binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the station HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the sqlite file holding the persisted document.
	DBPath string `koanf:"db_path"`
	// StorageKey names the document row inside the KV table.
	StorageKey string `koanf:"storage_key"`
	// StorageWatchMS is the poll interval for out-of-process writes.
	StorageWatchMS int `koanf:"storage_watch_ms"`

	// RemoteSyncConfig is a path or http(s) URL of the sync config document.
	// Empty disables remote sync.
	RemoteSyncConfig string `koanf:"remote_sync_config"`
	// PushQueueSize bounds pending push jobs.
	PushQueueSize int `koanf:"push_queue_size"`

	// NATSURL enables cross-process change notification when set.
	NATSURL     string `koanf:"nats_url"`
	NATSSubject string `koanf:"nats_subject"`

	// AllowedOrigins is a comma separated CORS origin list.
	AllowedOrigins string `koanf:"allowed_origins"`

	// LeaderboardTopN is the default game board size.
	LeaderboardTopN int `koanf:"leaderboard_top_n"`

	// RelayAddr and RelayDBPath configure cmd/relay.
	RelayAddr   string `koanf:"relay_addr"`
	RelayDBPath string `koanf:"relay_db_path"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		DBPath:            "sportsday.db",
		StorageKey:        "sportsday_local_v1",
		StorageWatchMS:    1000,
		PushQueueSize:     1,
		NATSSubject:       "sportsday.state",
		AllowedOrigins:    "*",
		LeaderboardTopN:   10,
		RelayAddr:         ":8090",
		RelayDBPath:       "relay.db",
		ShutdownTimeoutMS: 5000,
	}
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// StorageWatchInterval returns StorageWatchMS as a duration.
func (c *Config) StorageWatchInterval() time.Duration {
	return time.Duration(c.StorageWatchMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
