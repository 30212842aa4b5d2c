// Package worker runs queued remote pushes one at a time.
package worker

import (
	"context"
	"fmt"

	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/queue"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// Pusher writes a local document to the remote side.
type Pusher interface {
	Push(ctx context.Context, local *model.Document) error
}

// Queue defines how the worker receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in progress.
	Shutdown(ctx context.Context) error
}

// PushWorker hands each job to a Pusher. Push failures are logged and dropped;
// the next save queues a fresh push.
type PushWorker struct {
	queue  Queue
	pusher Pusher
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewPushWorker creates a worker with configuration options.
func NewPushWorker(q Queue, p Pusher, opts ...Option) *PushWorker {
	w := &PushWorker{
		queue:    q,
		pusher:   p,
		name:     "push-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *PushWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Warn(ctx, "push failed", logger.Error(err))
			}
		}
	}
}

// Shutdown implements Worker.
func (w *PushWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *PushWorker) process(ctx context.Context, j queue.Job) error {
	if j.Doc == nil {
		return nil
	}
	if err := w.pusher.Push(ctx, j.Doc); err != nil {
		metrics.RecordError("worker", "push")
		return fmt.Errorf("push document saved at %d: %w", j.SavedAt, err)
	}
	return nil
}
