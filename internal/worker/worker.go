package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/socionet/backend/internal/encoding"
	"github.com/socionet/backend/pkg/queue"
)

// dequeueWait bounds each BLPOP so shutdown is noticed promptly.
const dequeueWait = 5 * time.Second

// Source yields queued encode envelopes. *queue.Queue implements it.
type Source interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
	DeadLetter(ctx context.Context, job *queue.Job) error
}

// Submitter accepts a request for local execution. *encoding.Pool implements it.
type Submitter interface {
	SubmitWait(ctx context.Context, req encoding.Request) error
}

// EncodeConsumer moves encode requests from the Redis queue into the local pool.
type EncodeConsumer struct {
	source  Source
	pool    Submitter
	backoff time.Duration
	logger  *zap.Logger
}

// NewEncodeConsumer creates a consumer.
func NewEncodeConsumer(source Source, pool Submitter, logger *zap.Logger) *EncodeConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EncodeConsumer{source: source, pool: pool, backoff: queue.RetryBackoff, logger: logger}
}

// Handle decodes one envelope and hands it to the pool.
func (w *EncodeConsumer) Handle(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEncode {
		return fmt.Errorf("%w: unknown job type %q", errBadEnvelope, job.Type)
	}
	var req encoding.Request
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		return fmt.Errorf("%w: %v", errBadEnvelope, err)
	}
	if req.JobID == "" {
		req.JobID = job.ID
	}
	return w.pool.SubmitWait(ctx, req)
}

var errBadEnvelope = errors.New("invalid encode envelope")

// Run starts the consumer loop: dequeue, submit, retry on error.
func (w *EncodeConsumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("encode consumer stopping")
			return
		default:
		}

		job, err := w.source.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			w.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("received encode job", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		err = w.Handle(ctx, job)
		switch {
		case err == nil:
		case errors.Is(err, errBadEnvelope):
			w.logger.Error("discarding encode job", zap.String("job_id", job.ID), zap.Error(err))
			if dlqErr := w.source.DeadLetter(context.WithoutCancel(ctx), job); dlqErr != nil {
				w.logger.Error("dead-letter failed", zap.Error(dlqErr))
			}
		default:
			// The pool refused (shutdown); put the envelope back for another worker.
			w.logger.Warn("encode job not started", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.source.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
		}
	}
}

func (w *EncodeConsumer) sleep(ctx context.Context) {
	t := time.NewTimer(w.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
