package remote

import (
	"context"

	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/mq/queue"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/repository"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
)

// Enqueuer accepts push jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, j queue.Job) bool
}

// PushHook returns a post-save hook that requests a push of every saved document.
func PushHook(q Enqueuer) repository.Hook {
	return func(ctx context.Context, doc *model.Document) {
		q.Enqueue(ctx, queue.Job{Doc: doc, SavedAt: doc.UpdatedAt})
	}
}
