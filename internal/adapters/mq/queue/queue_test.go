package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

func job(at int64) Job {
	return Job{Doc: model.DefaultDocument(at), SavedAt: at}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	j := <-q.Dequeue(ctx)
	if j.SavedAt != 1 {
		t.Errorf("expected job 1, got %d", j.SavedAt)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Coalescing(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if !q.Enqueue(ctx, job(i)) {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	if l := q.Len(ctx); l != 1 {
		t.Fatalf("expected one pending job, got %d", l)
	}
	if j := <-q.Dequeue(ctx); j.SavedAt != 5 {
		t.Errorf("expected the newest job, got %d", j.SavedAt)
	}
}

func TestInMemoryQueue_CapacityWithoutCoalescing(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithCoalescing(false))
	ctx := context.Background()

	if !q.Enqueue(ctx, job(1)) || !q.Enqueue(ctx, job(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()
	q.Enqueue(ctx, job(1))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, job(2)) {
		t.Error("expected enqueue after close to fail")
	}

	var got []int64
	for j := range q.Dequeue(ctx) {
		got = append(got, j.SavedAt)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected the pending job to drain, got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, job(1)) {
		t.Error("expected enqueue with a cancelled context to fail")
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range 50 {
				if !q.Enqueue(ctx, job(int64(id*100+j))) {
					t.Errorf("producer %d: enqueue failed", id)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 4 {
		t.Errorf("expected a full queue, got %d", l)
	}
}
