package api

import (
	"net/http"

	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

type options struct {
	log     logger.Logger
	sync    SyncStatus
	live    http.Handler
	maxBody int64
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSyncStatus exposes the sync state machine on /healthz.
func WithSyncStatus(s SyncStatus) Option {
	return func(o *options) { o.sync = s }
}

// WithLive mounts the live view feed on /ws.
func WithLive(h http.Handler) Option {
	return func(o *options) { o.live = h }
}

// WithMaxBody bounds request bodies.
func WithMaxBody(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}
