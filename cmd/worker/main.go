// Package main runs the encode worker: it drains the Redis encode queue into a
// local pool and reports progress through the shared Redis registry.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/socionet/backend/config"
	"github.com/socionet/backend/internal/encoding"
	"github.com/socionet/backend/internal/media"
	"github.com/socionet/backend/internal/videos"
	"github.com/socionet/backend/internal/worker"
	"github.com/socionet/backend/pkg/database"
	"github.com/socionet/backend/pkg/queue"
	"github.com/socionet/backend/pkg/redis"
	"github.com/socionet/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.AWS.Bucket == "" {
		logger.Fatal("STORAGE_BUCKET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.Endpoint,
		Bucket:          cfg.AWS.Bucket,
		PostsBucket:     cfg.AWS.PostsBucket,
		SignedURLTTL:    time.Duration(cfg.AWS.SignedURLTTLSec) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	runner := media.ExecRunner{}
	pipeline := encoding.NewPipeline(
		storage.NewTransport(cfg.AWS.Transport, s3Client, cfg.AWS.Bucket),
		media.NewProber(cfg.Media.FFprobePath, runner),
		media.NewTranscoder(cfg.Media.FFmpegPath, runner),
		videos.NewRepository(pool),
		encoding.NewRedisRegistry(rdb.Client, logger),
		encoding.PipelineConfig{
			WorkDir:          cfg.Media.WorkDir,
			Retention:        cfg.Encode.Retention,
			ProgressInterval: cfg.Encode.ProgressInterval,
		},
		logger,
	)
	if err := pipeline.Ready(); err != nil {
		logger.Fatal("encode pipeline", zap.Error(err))
	}

	// The consumer blocks on SubmitWait, so a zero-depth pool keeps waiting
	// envelopes in Redis where other workers can take them.
	encodePool := encoding.NewPool(pipeline, cfg.Encode.MaxConcurrent, 0, logger)
	consumer := worker.NewEncodeConsumer(queue.NewQueue(rdb.Client, logger), encodePool, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return encodePool.Run(gctx) })
	g.Go(func() error {
		consumer.Run(gctx)
		return nil
	})
	logger.Info("worker started", zap.Int("workers", cfg.Encode.MaxConcurrent))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("worker", zap.Error(err))
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
