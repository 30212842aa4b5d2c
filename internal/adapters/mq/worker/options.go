package worker

import (
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

// Option applies a configuration option to the PushWorker.
type Option func(*PushWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *PushWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *PushWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
