// Package queue holds pending remote pushes.
//
// Every local save requests a push. Only the newest document matters, so a
// full queue drops its oldest job in favour of the new one.
package queue

import (
	"context"
	"sync"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

const defaultQueueCapacity = 1

// Job is a request to push a saved document.
type Job struct {
	Doc     *model.Document
	SavedAt int64
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns false when the queue is closed, or full
	// with coalescing disabled.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns the channel jobs are delivered on. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of pending jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Pending jobs are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	coalesce bool

	mu     sync.Mutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		coalesce: true,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdatePushQueueDepth(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || ctx.Err() != nil {
		return false
	}
	defer func() { metrics.UpdatePushQueueDepth(len(q.jobs)) }()

	select {
	case q.jobs <- j:
		return true
	default:
	}
	if !q.coalesce {
		metrics.RecordError("queue", "full")
		return false
	}

	select {
	case <-q.jobs:
		metrics.RecordPushCoalesced()
	default:
	}
	select {
	case q.jobs <- j:
		return true
	default:
		// a producer cannot race us here; only a consumer can free space
		return false
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	n := len(q.jobs)
	metrics.UpdatePushQueueDepth(n)
	return n
}

// Close implements Queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}

// IsClosed implements Queue.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
