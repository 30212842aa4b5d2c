package repository

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// DefaultKey is the storage key of the device document.
const DefaultKey = "sportsday_local_v1"

// Option applies a configuration option to the DocumentStore.
type Option func(*DocumentStore)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *DocumentStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock sets the clock used to stamp saves.
func WithClock(c clockwork.Clock) Option {
	return func(s *DocumentStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithNotifier sets the receiver of change notifications.
func WithNotifier(n Notifier) Option {
	return func(s *DocumentStore) {
		s.notifier = n
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *DocumentStore) {
		if l != nil {
			s.log = l
		}
	}
}

// SaveOption alters a single Save.
type SaveOption func(*saveConfig)

type saveConfig struct {
	broadcast bool
	hooks     bool
	keepStamp bool
}

// WithoutBroadcast suppresses the change notification of a save.
func WithoutBroadcast() SaveOption {
	return func(c *saveConfig) { c.broadcast = false }
}

// WithoutHooks suppresses the post-save hooks of a save.
func WithoutHooks() SaveOption {
	return func(c *saveConfig) { c.hooks = false }
}

// KeepStamp stores the document with its own updatedAt instead of now.
// Used when adopting a document written elsewhere.
func KeepStamp() SaveOption {
	return func(c *saveConfig) { c.keepStamp = true }
}

// WatcherOption applies a configuration option to the Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets how often the watcher polls storage.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatcherClock sets the watcher clock.
func WithWatcherClock(c clockwork.Clock) WatcherOption {
	return func(w *Watcher) {
		if c != nil {
			w.clock = c
		}
	}
}
