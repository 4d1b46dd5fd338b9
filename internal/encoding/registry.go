package encoding

import (
	"context"
	"sync"
	"time"
)

// Registry owns every Job for its lifetime. Implementations must apply each
// Patch atomically so readers only ever see whole snapshots.
type Registry interface {
	// Create stores a new queued job with progress 0.
	Create(ctx context.Context, id string) (Job, error)
	// Patch merges p into the job. A missing job is not an error.
	Patch(ctx context.Context, id string, p Patch) error
	// Get returns a snapshot or ErrJobNotFound.
	Get(ctx context.Context, id string) (Job, error)
	// ScheduleDeletion purges the job after delay without blocking.
	// A non-positive delay purges immediately.
	ScheduleDeletion(ctx context.Context, id string, delay time.Duration) error
}

type memoryEntry struct {
	job   Job
	timer *time.Timer
	gen   uint64
}

// MemoryRegistry is a process-local Registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*memoryEntry
	now  func() time.Time
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]*memoryEntry), now: time.Now}
}

func (r *MemoryRegistry) Create(_ context.Context, id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; ok {
		return Job{}, ErrJobExists
	}
	job := newJob(id, r.now())
	r.jobs[id] = &memoryEntry{job: job}
	return job, nil
}

func (r *MemoryRegistry) Patch(_ context.Context, id string, p Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[id]; ok {
		apply(&e.job, p, r.now())
	}
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return e.job, nil
}

func (r *MemoryRegistry) ScheduleDeletion(_ context.Context, id string, delay time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return nil
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if delay <= 0 {
		delete(r.jobs, id)
		return nil
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(delay, func() { r.purge(id, e, gen) })
	return nil
}

// purge removes id only if it still maps to e and gen is the latest schedule.
func (r *MemoryRegistry) purge(id string, e *memoryEntry, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.jobs[id]; ok && cur == e && cur.gen == gen {
		delete(r.jobs, id)
	}
}

// Len returns the number of retained jobs.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Close stops pending purge timers.
func (r *MemoryRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.jobs {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}
