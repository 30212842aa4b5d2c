package service

import (
	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// DefaultTopN is how many rows a game leaderboard shows when no limit is given.
const DefaultTopN = 10

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClock sets the clock stamping result records and built heats.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSubscriptions sets the source of change notifications.
func WithSubscriptions(src Subscriptions) Option {
	return func(s *Service) {
		s.subs = src
	}
}

// WithTopN sets the default game leaderboard length.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}
