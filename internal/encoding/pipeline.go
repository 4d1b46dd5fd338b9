package encoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/socionet/backend/internal/media"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/storage"
)

const (
	workDirPattern  = "socionet-encode-"
	finalizeTimeout = 10 * time.Second
)

// Request is everything a run needs once the job exists.
type Request struct {
	JobID        string      `json:"jobId"`
	Title        string      `json:"title"`
	Description  *string     `json:"description,omitempty"`
	RequiredRole models.Role `json:"requiredRole"`
	IsPublished  bool        `json:"isPublished"`
	StoragePath  string      `json:"storagePath"`
	UploaderID   uuid.UUID   `json:"uploaderId"`
}

// Prober reads media metadata from a local file.
type Prober interface {
	Probe(ctx context.Context, file string) (media.Metadata, error)
	Available() error
}

// Transcoder re-encodes a local file.
type Transcoder interface {
	Transcode(ctx context.Context, req media.TranscodeRequest) error
	Available() error
}

// Catalog persists the published video. Create fills in v.ID.
type Catalog interface {
	Create(ctx context.Context, v *models.Video) error
}

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	// WorkDir is the parent of per-job temp directories; empty uses os.TempDir.
	WorkDir string
	// Retention is how long terminal jobs stay readable.
	Retention time.Duration
	// ProgressInterval is the minimum spacing of in-flight progress writes.
	ProgressInterval time.Duration
}

// Pipeline drives one Request from source object to published video.
type Pipeline struct {
	transport  storage.Transport
	prober     Prober
	transcoder Transcoder
	catalog    Catalog
	registry   Registry
	cfg        PipelineConfig
	now        func() time.Time
	logger     *zap.Logger
}

// NewPipeline wires a pipeline. transport may be nil when storage is not configured.
func NewPipeline(transport storage.Transport, prober Prober, transcoder Transcoder, catalog Catalog, registry Registry, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		transport:  transport,
		prober:     prober,
		transcoder: transcoder,
		catalog:    catalog,
		registry:   registry,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

// Ready reports ErrNotConfigured when storage or a binary is missing.
func (p *Pipeline) Ready() error {
	if p.transport == nil {
		return fmt.Errorf("%w: %w", ErrNotConfigured, ErrStorageNotConfigured)
	}
	if err := p.prober.Available(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	if err := p.transcoder.Available(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	return nil
}

// Run processes req to a terminal state. It never returns an error; every
// failure is recorded on the job. The working directory is gone before the
// terminal state becomes visible.
func (p *Pipeline) Run(ctx context.Context, req Request) {
	log := p.logger.With(zap.String("job_id", req.JobID))
	start := time.Now()

	videoID, workDir, err := p.runInWorkDir(ctx, req, log)

	// Terminal writes must land even when ctx was cancelled by shutdown.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if err != nil {
		msg := publicMessage(err, workDir)
		log.Error("encode job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		p.patch(fctx, log, req.JobID, Patch{Status: StatusError, Message: &msg})
	} else {
		log.Info("encode job done", zap.String("video_id", videoID), zap.Duration("elapsed", time.Since(start)))
		done := StagePatch(StatusDone, ProgressDone, MessageDone)
		done.VideoID = videoID
		p.patch(fctx, log, req.JobID, done)
	}
	if err := p.registry.ScheduleDeletion(fctx, req.JobID, p.cfg.Retention); err != nil {
		log.Warn("schedule job deletion failed", zap.Error(err))
	}
}

func (p *Pipeline) runInWorkDir(ctx context.Context, req Request, log *zap.Logger) (videoID, dir string, err error) {
	dir, err = os.MkdirTemp(p.cfg.WorkDir, workDirPattern)
	if err != nil {
		return "", "", fmt.Errorf("allocate working directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("remove working directory failed", zap.String("dir", dir), zap.Error(rmErr))
		}
		if r := recover(); r != nil {
			log.Error("encode job panicked", zap.Any("panic", r))
			err = errors.New("internal error")
		}
	}()
	videoID, err = p.process(ctx, req, dir, log)
	return videoID, dir, err
}

func (p *Pipeline) process(ctx context.Context, req Request, dir string, log *zap.Logger) (string, error) {
	if p.transport == nil {
		return "", fmt.Errorf("%w: %w", ErrSourceUnavailable, ErrStorageNotConfigured)
	}
	ext := path.Ext(req.StoragePath)
	if ext == "" {
		ext = ".mp4"
	}
	src := filepath.Join(dir, "source"+ext)
	out := filepath.Join(dir, "encoded.mp4")

	p.patch(ctx, log, req.JobID, StagePatch(StatusProcessing, ProgressDownloading, MessageDownloading))
	if err := p.download(ctx, req.StoragePath, src); err != nil {
		return "", err
	}

	meta, err := p.prober.Probe(ctx, src)
	if err != nil {
		return "", err
	}
	p.patch(ctx, log, req.JobID, StagePatch(StatusEncoding, ProgressEncoding, MessageEncoding))

	target := media.TargetHeight(meta.HeightOrZero())
	log.Info("transcoding", zap.Int("source_height", meta.HeightOrZero()), zap.Int("target_height", target))
	err = p.transcoder.Transcode(ctx, media.TranscodeRequest{
		Input:           src,
		Output:          out,
		TargetHeight:    target,
		DurationSeconds: meta.DurationSeconds,
		OnProgress:      p.progressReporter(ctx, log, req.JobID),
	})
	if err != nil {
		return "", err
	}

	encoded, err := p.prober.Probe(ctx, out)
	if err != nil {
		return "", err
	}
	p.patch(ctx, log, req.JobID, StagePatch(StatusUploading, ProgressUploading, MessageUploading))

	key, err := p.upload(ctx, storage.EncodedKey(req.StoragePath, p.now()), out)
	if err != nil {
		return "", err
	}
	if err := p.transport.Remove(ctx, req.StoragePath); err != nil {
		log.Warn("remove source object failed", zap.String("key", req.StoragePath), zap.Error(err))
	}

	video := &models.Video{
		Title:           req.Title,
		Description:     req.Description,
		StoragePath:     key,
		RequiredRole:    req.RequiredRole,
		IsPublished:     req.IsPublished,
		DurationSeconds: encoded.DurationSeconds,
	}
	if req.UploaderID != uuid.Nil {
		uploader := req.UploaderID
		video.UploadedByID = &uploader
	}
	if err := p.catalog.Create(ctx, video); err != nil {
		return "", fmt.Errorf("create video record: %w", err)
	}
	return video.ID.String(), nil
}

func (p *Pipeline) download(ctx context.Context, key, dst string) error {
	body, err := p.transport.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer body.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close source file: %w", err)
	}
	return nil
}

func (p *Pipeline) upload(ctx context.Context, key, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("open encoded file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat encoded file: %w", err)
	}
	stored, err := p.transport.Upload(ctx, key, storage.VideoContentType, f, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return stored, nil
}

// progressReporter forwards encoder progress, spaced by ProgressInterval.
// The clamp value always goes through so the last in-flight write is not lost.
func (p *Pipeline) progressReporter(ctx context.Context, log *zap.Logger, id string) func(int) {
	limiter := rate.NewLimiter(rate.Every(p.cfg.ProgressInterval), 1)
	return func(pct int) {
		if pct < media.MaxEncodeProgress && !limiter.Allow() {
			return
		}
		p.patch(ctx, log, id, StagePatch(StatusEncoding, pct, MessageEncoding))
	}
}

func (p *Pipeline) patch(ctx context.Context, log *zap.Logger, id string, patch Patch) {
	if err := p.registry.Patch(ctx, id, patch); err != nil {
		log.Warn("job patch failed", zap.String("status", string(patch.Status)), zap.Error(err))
	}
}
