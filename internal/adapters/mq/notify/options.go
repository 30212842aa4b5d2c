package notify

import "github.com/soyingpang/sportsday-race-mvp/pkg/logger"

const defaultBuffer = 16

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBuffer sets the per-subscriber channel buffer.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithOrigin tags locally published events with the station instance id.
func WithOrigin(origin string) Option {
	return func(h *Hub) {
		h.origin = origin
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}
