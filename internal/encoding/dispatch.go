package encoding

import (
	"context"
	"fmt"

	"github.com/socionet/backend/pkg/queue"
)

// QueueDispatcher hands requests to cmd/worker through the Redis encode queue.
type QueueDispatcher struct {
	queue    *queue.Queue
	maxDepth int64
}

// NewQueueDispatcher creates a dispatcher. A positive maxDepth rejects
// submissions with ErrSaturated once that many requests are waiting.
func NewQueueDispatcher(q *queue.Queue, maxDepth int) *QueueDispatcher {
	return &QueueDispatcher{queue: q, maxDepth: int64(maxDepth)}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, req Request) error {
	if d.maxDepth > 0 {
		n, err := d.queue.Len(ctx)
		if err != nil {
			return fmt.Errorf("check queue depth: %w", err)
		}
		if n >= d.maxDepth {
			return ErrSaturated
		}
	}
	return d.queue.EnqueueEncode(ctx, req.JobID, req)
}
