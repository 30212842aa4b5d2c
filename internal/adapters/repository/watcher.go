package repository

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
)

const defaultWatchInterval = time.Second

// Watcher polls storage and notifies when another writer replaced the document.
// Saves made through the watched store are never re-announced.
type Watcher struct {
	store    *DocumentStore
	notifier Notifier
	interval time.Duration
	clock    clockwork.Clock
}

// NewWatcher returns a watcher over store that announces changes to n.
func NewWatcher(store *DocumentStore, n Notifier, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:    store,
		notifier: n,
		interval: defaultWatchInterval,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.Check(ctx)
		}
	}
}

// Check compares storage once and reports whether a foreign change was announced.
func (w *Watcher) Check(ctx context.Context) bool {
	doc, result, err := w.store.read(ctx)
	if err != nil {
		w.store.log.Warn(ctx, "storage watch failed", logger.Error(err))
		return false
	}
	// nothing usable is stored, so there is nothing to re-read
	if result == model.LoadDefault {
		return false
	}
	if !w.store.changedElsewhere(doc.UpdatedAt) {
		return false
	}
	w.notifier.Notify(ctx, doc.UpdatedAt)
	return true
}
