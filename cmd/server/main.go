// Package main runs the learning platform HTTP server and the in-process encode pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/socionet/backend/config"
	"github.com/socionet/backend/internal/auth"
	"github.com/socionet/backend/internal/encoding"
	"github.com/socionet/backend/internal/media"
	"github.com/socionet/backend/internal/middleware"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/internal/posts"
	"github.com/socionet/backend/internal/users"
	"github.com/socionet/backend/internal/videos"
	"github.com/socionet/backend/pkg/database"
	"github.com/socionet/backend/pkg/queue"
	"github.com/socionet/backend/pkg/redis"
	"github.com/socionet/backend/pkg/response"
	"github.com/socionet/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis backs only the encode registry and queue.
	var rdb *redis.Client
	if cfg.Encode.UsesRedis() {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	var (
		s3Client    *storage.S3
		transport   storage.Transport
		videoSigner videos.URLSigner
		imageSigner posts.ImageSigner
	)
	if cfg.AWS.Bucket != "" || cfg.AWS.PostsBucket != "" {
		s3Client, err = storage.NewS3(ctx, s3Config(cfg.AWS), logger)
		if err != nil {
			logger.Warn("storage disabled", zap.Error(err))
		} else {
			videoSigner, imageSigner = s3Client, s3Client
			if cfg.AWS.Bucket != "" {
				transport = storage.NewTransport(cfg.AWS.Transport, s3Client, cfg.AWS.Bucket)
			}
		}
	}
	if transport == nil {
		logger.Warn("video storage not configured; uploads and encoding are disabled")
	}

	runner := media.ExecRunner{}
	prober := media.NewProber(cfg.Media.FFprobePath, runner)
	transcoder := media.NewTranscoder(cfg.Media.FFmpegPath, runner)

	var registry encoding.Registry
	if cfg.Encode.Registry == config.RegistryRedis {
		registry = encoding.NewRedisRegistry(rdb.Client, logger)
	} else {
		mem := encoding.NewMemoryRegistry()
		defer mem.Close()
		registry = mem
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, cfg.Server.CookieSecure, logger)

	userHandler := users.NewHandler(users.NewRepository(pool), logger)

	videoRepo := videos.NewRepository(pool)
	videoHandler := videos.NewHandler(videoRepo, videoSigner, cfg.AWS.Bucket, logger)
	videoAdmin := videos.NewAdminHandler(videoRepo, videos.AdminConfig{
		Signer:    videoSigner,
		Transport: transport,
		Prober:    prober,
		Bucket:    cfg.AWS.Bucket,
		UploadDir: cfg.Media.WorkDir,
	}, logger)

	postHandler := posts.NewHandler(posts.NewRepository(pool), imageSigner, cfg.AWS.PostsBucket, logger)

	pipeline := encoding.NewPipeline(transport, prober, transcoder, videoRepo, registry, encoding.PipelineConfig{
		WorkDir:          cfg.Media.WorkDir,
		Retention:        cfg.Encode.Retention,
		ProgressInterval: cfg.Encode.ProgressInterval,
	}, logger)

	var (
		dispatcher encoding.Dispatcher
		ready      = pipeline.Ready
		poolDone   = make(chan struct{})
	)
	if cfg.Encode.Dispatch == config.DispatchRedis {
		// The worker process owns the binaries; this process only needs storage.
		dispatcher = encoding.NewQueueDispatcher(queue.NewQueue(rdb.Client, logger), cfg.Encode.QueueDepth)
		ready = func() error {
			if transport == nil {
				return fmt.Errorf("%w: %w", encoding.ErrNotConfigured, encoding.ErrStorageNotConfigured)
			}
			return nil
		}
		close(poolDone)
	} else {
		encodePool := encoding.NewPool(pipeline, cfg.Encode.MaxConcurrent, cfg.Encode.QueueDepth, logger)
		dispatcher = encodePool
		go func() {
			defer close(poolDone)
			_ = encodePool.Run(ctx)
		}()
		logger.Info("encode pool started",
			zap.Int("workers", cfg.Encode.MaxConcurrent),
			zap.Int("queue_depth", cfg.Encode.QueueDepth))
	}
	origins := config.SplitOrigins(cfg.Server.FrontendOrigins)
	encodeHandler := encoding.NewHandler(registry, dispatcher, ready, origins, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(origins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", middleware.Auth(jwtService), authHandler.Me)
	}

	router.GET("/posts", postHandler.PublicList)
	router.GET("/posts/:id", postHandler.PublicGet)

	api := router.Group("")
	api.Use(middleware.Auth(jwtService))
	{
		api.GET("/videos", videoHandler.List)
		api.GET("/videos/:id", videoHandler.Get)
		api.PATCH("/videos/:id/progress", videoHandler.SetProgress)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.Auth(jwtService), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", userHandler.List)
		admin.PATCH("/users/:id", userHandler.Update)
		admin.DELETE("/users/:id", userHandler.Delete)

		admin.GET("/videos", videoAdmin.List)
		admin.POST("/videos", videoAdmin.Create)
		admin.POST("/videos/upload-url", videoAdmin.UploadURL)
		admin.POST("/videos/upload", videoAdmin.Upload)
		admin.PATCH("/videos/:id", videoAdmin.Update)
		admin.DELETE("/videos/:id", videoAdmin.Delete)

		admin.POST("/videos/encode", encodeHandler.Submit)
		admin.GET("/videos/encode/:id", encodeHandler.Status)
		admin.GET("/videos/encode/:id/watch", encodeHandler.Watch)

		admin.GET("/posts", postHandler.AdminList)
		admin.POST("/posts", postHandler.Create)
		admin.POST("/posts/upload-url", postHandler.UploadURL)
		admin.PATCH("/posts/:id", postHandler.Update)
		admin.DELETE("/posts/:id", postHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	select {
	case <-poolDone:
	case <-shutdownCtx.Done():
		logger.Warn("encode pool did not drain before shutdown deadline")
	}
	logger.Info("server stopped")
}

func s3Config(c config.AWSConfig) storage.S3Config {
	return storage.S3Config{
		Region:          c.Region,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Endpoint:        c.Endpoint,
		Bucket:          c.Bucket,
		PostsBucket:     c.PostsBucket,
		SignedURLTTL:    time.Duration(c.SignedURLTTLSec) * time.Second,
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
