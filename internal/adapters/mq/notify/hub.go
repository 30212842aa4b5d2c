// Package notify fans change notifications out to every open view.
//
// A notification is a hint to re-read the document; it never carries the
// document itself.
package notify

import (
	"context"
	"sync"

	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// TypeStateUpdated is the only notification type.
const TypeStateUpdated = "STATE_UPDATED"

// Event is the notification payload.
type Event struct {
	Type      string `json:"type"`
	UpdatedAt int64  `json:"updatedAt"`
	Origin    string `json:"origin,omitempty"`
}

// Forwarder carries local events beyond this process.
type Forwarder interface {
	Forward(ctx context.Context, e Event)
}

// Hub delivers each event at most once to every subscriber. A subscriber whose
// buffer is full misses the event; the next one makes it re-read anyway.
type Hub struct {
	buffer int
	origin string
	log    logger.Logger

	mu         sync.RWMutex
	subs       map[uint64]chan Event
	next       uint64
	forwarders []Forwarder
	closed     bool
}

// NewHub returns an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		buffer: defaultBuffer,
		log:    logger.Nop(),
		subs:   make(map[uint64]chan Event),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a subscriber. The returned cancel func unsubscribes and
// closes the channel; it is also called when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()
	metrics.UpdateSubscribers(n)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
			n := len(h.subs)
			h.mu.Unlock()
			metrics.UpdateSubscribers(n)
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}
}

// Publish delivers e to the local subscribers without blocking.
func (h *Hub) Publish(ctx context.Context, e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
			metrics.RecordNotificationPublished()
		default:
			metrics.RecordNotificationDropped()
			h.log.Debug(ctx, "subscriber busy, notification dropped", logger.Int64("updatedAt", e.UpdatedAt))
		}
	}
}

// Notify publishes a STATE_UPDATED event locally and hands it to the forwarders.
func (h *Hub) Notify(ctx context.Context, updatedAt int64) {
	e := Event{Type: TypeStateUpdated, UpdatedAt: updatedAt, Origin: h.origin}
	h.Publish(ctx, e)

	h.mu.RLock()
	forwarders := append([]Forwarder(nil), h.forwarders...)
	h.mu.RUnlock()
	for _, f := range forwarders {
		f.Forward(ctx, e)
	}
}

// AddForwarder sends every later Notify to f as well.
func (h *Hub) AddForwarder(f Forwarder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forwarders = append(h.forwarders, f)
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unsubscribes everyone. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	metrics.UpdateSubscribers(0)
}
