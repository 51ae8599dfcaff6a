package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"scriba/internal/asr"
	"scriba/internal/config"
	"scriba/internal/fetch"
	"scriba/internal/handlers"
	"scriba/internal/pipeline"
	"scriba/internal/publish"
	"scriba/internal/store"
	"scriba/internal/task"
	"scriba/internal/version"
)

func main() {
	// Load .env if present, skip otherwise.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	storage, err := store.New(ctx, store.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Secure:    cfg.MinioSecure,
		URLTTL:    cfg.URLExpiration,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect to object store", zap.Error(err))
	}

	registry := task.NewRegistry()
	fetcher := fetch.NewYouTube(logger)
	engine := asr.NewSherpaEngine(cfg.WhisperModelDir, logger)
	defer engine.Close()
	transcriber := asr.NewTranscriber(asr.NewFFmpegTranscoder(), engine, cfg.WhisperLanguage, logger)
	publisher := publish.New(storage, cfg.MinioBucket, logger)

	coordinator := pipeline.New(pipeline.Options{
		Registry:    registry,
		Fetcher:     fetcher,
		Transcriber: transcriber,
		Publisher:   publisher,
		Media:       storage,
		WorkDir:     cfg.WorkDir,
		Logger:      logger,
	})
	coordinator.Start(cfg.WorkerCount)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:X-API-Key",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		Validator: func(key string, c echo.Context) (bool, error) {
			return key == cfg.APIKey, nil
		},
	}))

	downloads := handlers.NewDownloadHandler(coordinator, registry, storage)
	transcriptions := handlers.NewTranscriptionHandler(coordinator, registry, storage,
		handlers.TranscriptionDefaults{
			Language:  cfg.WhisperLanguage,
			Model:     cfg.WhisperModel,
			Precision: cfg.WhisperComputeType,
		})
	tasks := handlers.NewTaskHandler(registry)
	health := handlers.NewHealthHandler(storage)

	e.GET("/health", health.Check)

	api := e.Group("/api")
	api.POST("/downloads", downloads.Submit)
	api.GET("/downloads", downloads.List)
	api.GET("/downloads/status/:task_id", downloads.Status)
	api.GET("/downloads/:video_id", downloads.Get)

	api.POST("/transcriptions", transcriptions.Submit)
	api.GET("/transcriptions", transcriptions.List)
	api.GET("/transcriptions/status/:task_id", transcriptions.Status)
	api.GET("/transcriptions/:transcription_id", transcriptions.Get)

	api.GET("/tasks/:task_id", tasks.Get)
	api.DELETE("/tasks/:task_id", tasks.Delete)

	go func() {
		logger.Info("starting server",
			zap.String("version", version.Version),
			zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil {
			logger.Info("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	coordinator.Stop(shutdownCtx)
}
