package live

import (
	"net/http"
	"time"

	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// Config holds the websocket connection settings.
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConfig returns the default connection settings. Every origin is
// accepted; browser access is narrowed by the CORS layer in front.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     16,
		CheckOrigin:    func(*http.Request) bool { return true },
	}
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithConfig replaces the connection settings. Zero fields keep their defaults.
func WithConfig(c Config) Option {
	return func(m *Manager) {
		if c.WriteTimeout > 0 {
			m.cfg.WriteTimeout = c.WriteTimeout
		}
		if c.ReadTimeout > 0 {
			m.cfg.ReadTimeout = c.ReadTimeout
		}
		if c.PingInterval > 0 {
			m.cfg.PingInterval = c.PingInterval
		}
		if c.MaxMessageSize > 0 {
			m.cfg.MaxMessageSize = c.MaxMessageSize
		}
		if c.SendBuffer > 0 {
			m.cfg.SendBuffer = c.SendBuffer
		}
		if c.CheckOrigin != nil {
			m.cfg.CheckOrigin = c.CheckOrigin
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}
