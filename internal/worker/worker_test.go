package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socionet/backend/internal/encoding"
	"github.com/socionet/backend/pkg/queue"
)

type fakeSource struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []string
	dead    []string
}

func (f *fakeSource) Dequeue(_ context.Context, _ time.Duration) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	j := f.jobs[0]
	f.jobs = f.jobs[1:]
	return j, nil
}

func (f *fakeSource) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, job.ID)
	return nil
}

func (f *fakeSource) DeadLetter(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead = append(f.dead, job.ID)
	return nil
}

type fakeSubmitter struct {
	mu   sync.Mutex
	err  error
	reqs []encoding.Request
}

func (f *fakeSubmitter) SubmitWait(_ context.Context, req encoding.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reqs = append(f.reqs, req)
	return nil
}

func envelope(t *testing.T, id string, req encoding.Request) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return &queue.Job{ID: id, Type: queue.JobTypeEncode, Payload: raw}
}

func TestHandle(t *testing.T) {
	sub := &fakeSubmitter{}
	w := NewEncodeConsumer(&fakeSource{}, sub, nil)

	err := w.Handle(context.Background(), envelope(t, "j1", encoding.Request{Title: "t", StoragePath: "videos/a.mp4"}))
	require.NoError(t, err)
	require.Len(t, sub.reqs, 1)
	assert.Equal(t, "j1", sub.reqs[0].JobID)
	assert.Equal(t, "videos/a.mp4", sub.reqs[0].StoragePath)

	err = w.Handle(context.Background(), &queue.Job{ID: "x", Type: "email"})
	assert.ErrorIs(t, err, errBadEnvelope)
	err = w.Handle(context.Background(), &queue.Job{ID: "y", Type: queue.JobTypeEncode, Payload: json.RawMessage(`"nope"`)})
	assert.ErrorIs(t, err, errBadEnvelope)
}

func TestRun_RoutesFailures(t *testing.T) {
	src := &fakeSource{jobs: []*queue.Job{
		envelope(t, "bad-type", encoding.Request{}),
		envelope(t, "refused", encoding.Request{JobID: "refused"}),
	}}
	src.jobs[0].Type = "unknown"
	sub := &fakeSubmitter{err: encoding.ErrPoolClosed}
	w := NewEncodeConsumer(src, sub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.dead) == 1 && len(src.retried) >= 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, []string{"bad-type"}, src.dead)
	assert.Equal(t, "refused", src.retried[0])
}

func TestRun_BacksOffOnDequeueError(t *testing.T) {
	w := NewEncodeConsumer(&erroringSource{}, &fakeSubmitter{}, nil)
	w.backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	w.Run(ctx)
	assert.Less(t, time.Since(start), time.Second)
}

type erroringSource struct{ fakeSource }

func (*erroringSource) Dequeue(context.Context, time.Duration) (*queue.Job, error) {
	return nil, errors.New("connection refused")
}
