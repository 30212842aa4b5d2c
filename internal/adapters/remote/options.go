package remote

import (
	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// Option applies a configuration option to the Syncer.
type Option func(*Syncer)

// WithClock sets the clock driving the pull ticker and push stamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Syncer) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the syncer logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInstanceID overrides the generated station instance id.
func WithInstanceID(id string) Option {
	return func(s *Syncer) {
		if id != "" {
			s.instance = id
		}
	}
}
