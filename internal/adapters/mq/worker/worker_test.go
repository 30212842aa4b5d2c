package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/queue"
	worker "github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/worker"
	model "github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	logging "github.com/soyingpang/sportsday-race-mvp/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockPusher struct {
	mu     sync.Mutex
	pushed []int64
	err    error
	seen   chan struct{}
}

func newMockPusher() *mockPusher {
	return &mockPusher{seen: make(chan struct{}, 10)}
}

func (m *mockPusher) Push(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	m.pushed = append(m.pushed, doc.UpdatedAt)
	err := m.err
	m.mu.Unlock()
	m.seen <- struct{}{}
	return err
}

func (m *mockPusher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pushed)
}

func waitFor(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestPushWorker(t *testing.T) {
	convey.Convey("Given a push worker on a queue", t, func() {
		q := queue.NewInMemoryQueue()
		p := newMockPusher()
		w := worker.NewPushWorker(q, p, worker.WithName("test"), worker.WithLogger(logging.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		convey.Reset(func() {
			cancel()
			_ = w.Shutdown(context.Background())
		})

		convey.Convey("When a job is queued", func() {
			q.Enqueue(ctx, queue.Job{Doc: model.DefaultDocument(11), SavedAt: 11})

			convey.Convey("Then it is pushed", func() {
				convey.So(waitFor(p.seen), convey.ShouldBeTrue)
				convey.So(p.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a push fails", func() {
			p.mu.Lock()
			p.err = errors.New("offline")
			p.mu.Unlock()
			q.Enqueue(ctx, queue.Job{Doc: model.DefaultDocument(1), SavedAt: 1})
			convey.So(waitFor(p.seen), convey.ShouldBeTrue)

			convey.Convey("Then the worker keeps serving jobs", func() {
				q.Enqueue(ctx, queue.Job{Doc: model.DefaultDocument(2), SavedAt: 2})
				convey.So(waitFor(p.seen), convey.ShouldBeTrue)
				convey.So(p.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a job without a document is queued", func() {
			q.Enqueue(ctx, queue.Job{})
			q.Enqueue(ctx, queue.Job{Doc: model.DefaultDocument(3), SavedAt: 3})

			convey.Convey("Then only the real job is pushed", func() {
				convey.So(waitFor(p.seen), convey.ShouldBeTrue)
				convey.So(p.count(), convey.ShouldEqual, 1)
			})
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewPushWorker(q, newMockPusher())
		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()
		convey.So(q.Close(), convey.ShouldBeNil)

		convey.Convey("Then Run returns and shutdown succeeds", func() {
			convey.So(waitFor(done), convey.ShouldBeTrue)
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}
