package encoding

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/socionet/backend/internal/media"
	"github.com/socionet/backend/internal/models"
)

type fakeTransport struct {
	mu          sync.Mutex
	objects     map[string][]byte
	downloadErr error
	uploadErr   error
	removeErr   error
	removed     []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{objects: map[string][]byte{}}
}

func (f *fakeTransport) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeTransport) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return key, nil
}

func (f *fakeTransport) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, key)
	return nil
}

// fakeProber answers by file base name.
type fakeProber struct {
	meta  map[string]media.Metadata
	err   error
	unavl error
	seen  []string
}

func (f *fakeProber) Probe(_ context.Context, file string) (media.Metadata, error) {
	f.seen = append(f.seen, file)
	if f.err != nil {
		return media.Metadata{}, f.err
	}
	if _, err := os.Stat(file); err != nil {
		return media.Metadata{}, err
	}
	return f.meta[filepath.Base(file)], nil
}

func (f *fakeProber) Available() error { return f.unavl }

type fakeTranscoder struct {
	progress []int
	err      error
	unavl    error
	got      media.TranscodeRequest
	dirSeen  bool
}

func (f *fakeTranscoder) Transcode(_ context.Context, req media.TranscodeRequest) error {
	f.got = req
	if _, err := os.Stat(filepath.Dir(req.Input)); err == nil {
		f.dirSeen = true
	}
	for _, p := range f.progress {
		if req.OnProgress != nil {
			req.OnProgress(p)
		}
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(req.Output, []byte("encoded bytes"), 0o600)
}

func (f *fakeTranscoder) Available() error { return f.unavl }

type fakeCatalog struct {
	mu     sync.Mutex
	videos []*models.Video
	err    error
}

func (f *fakeCatalog) Create(_ context.Context, v *models.Video) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = uuid.New()
	f.videos = append(f.videos, v)
	return nil
}

// recordingRegistry keeps every snapshot observed after a patch.
type recordingRegistry struct {
	*MemoryRegistry
	mu        sync.Mutex
	snapshots []Job
}

func newRecordingRegistry() *recordingRegistry {
	return &recordingRegistry{MemoryRegistry: NewMemoryRegistry()}
}

func (r *recordingRegistry) Patch(ctx context.Context, id string, p Patch) error {
	if err := r.MemoryRegistry.Patch(ctx, id, p); err != nil {
		return err
	}
	if job, err := r.MemoryRegistry.Get(ctx, id); err == nil {
		r.mu.Lock()
		r.snapshots = append(r.snapshots, job)
		r.mu.Unlock()
	}
	return nil
}

func (r *recordingRegistry) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Status
	for _, s := range r.snapshots {
		if len(out) == 0 || out[len(out)-1] != s.Status {
			out = append(out, s.Status)
		}
	}
	return out
}

func (r *recordingRegistry) progressValues() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		out = append(out, s.Progress)
	}
	return out
}
