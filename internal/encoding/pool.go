package encoding

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned by submissions after shutdown began.
var ErrPoolClosed = errors.New("encode pool is shut down")

const submitRetryInterval = 10 * time.Millisecond

// JobRunner executes one request to completion. *Pipeline implements it.
type JobRunner interface {
	Run(ctx context.Context, req Request)
}

// Dispatcher hands a request to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// Pool runs requests on a fixed number of workers behind a bounded queue.
type Pool struct {
	runner  JobRunner
	workers int
	queue   chan Request
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewPool creates a pool with workers goroutines and room for depth waiting requests.
func NewPool(runner JobRunner, workers, depth int, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	if depth < 0 {
		depth = 0
	}
	return &Pool{
		runner:  runner,
		workers: workers,
		queue:   make(chan Request, depth),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled and all workers return. Requests still
// queued at that point run with the cancelled context, so they fail fast and
// reach a terminal state instead of being dropped.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			p.work(gctx, worker)
			return nil
		})
	}
	err := g.Wait()

	p.mu.Lock()
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	for {
		select {
		case req := <-p.queue:
			p.logger.Info("failing queued encode job on shutdown", zap.String("job_id", req.JobID))
			p.runner.Run(gctx, req)
		default:
			return err
		}
	}
}

func (p *Pool) work(ctx context.Context, worker int) {
	p.logger.Debug("encode worker started", zap.Int("worker", worker))
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.queue:
			p.runner.Run(ctx, req)
		}
	}
}

// Dispatch enqueues req without blocking or returns ErrSaturated.
func (p *Pool) Dispatch(_ context.Context, req Request) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- req:
		return nil
	default:
		return ErrSaturated
	}
}

// SubmitWait blocks until req is queued, ctx is done, or the pool shuts down.
// A nil return means req will run, either on a worker or in the shutdown drain.
func (p *Pool) SubmitWait(ctx context.Context, req Request) error {
	ticker := time.NewTicker(submitRetryInterval)
	defer ticker.Stop()
	for {
		switch err := p.Dispatch(ctx, req); {
		case err == nil:
			return nil
		case !errors.Is(err, ErrSaturated):
			return err
		}
		select {
		case <-p.done:
			return ErrPoolClosed
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
