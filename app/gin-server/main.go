package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/RamonSaldanha/gravadorjuridico/config"
	"github.com/RamonSaldanha/gravadorjuridico/internal/api/handlers"
	"github.com/RamonSaldanha/gravadorjuridico/internal/api/middleware"
	"github.com/RamonSaldanha/gravadorjuridico/internal/api/routes"
	"github.com/RamonSaldanha/gravadorjuridico/internal/audio"
	"github.com/RamonSaldanha/gravadorjuridico/internal/logger"
	"github.com/RamonSaldanha/gravadorjuridico/internal/pipeline"
	"github.com/RamonSaldanha/gravadorjuridico/internal/providers/ai"
	"github.com/RamonSaldanha/gravadorjuridico/internal/recorder"
	sqliterepo "github.com/RamonSaldanha/gravadorjuridico/internal/repositories/sqlite"
	"github.com/RamonSaldanha/gravadorjuridico/internal/services"
	"github.com/RamonSaldanha/gravadorjuridico/internal/storage"
)

func main() {
	l := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("data dir error: %v", err)
	}
	if err := config.InitSQLite(cfg.DataDir); err != nil {
		log.Fatalf("SQLite init error: %v", err)
	}
	l.Info("SQLite ready")

	ctx := context.Background()

	provider, err := ai.New(ctx, cfg)
	if err != nil {
		log.Fatalf("AI provider error: %v", err)
	}

	files := storage.NewLocalFiles()

	var uploader storage.Uploader
	if cfg.ExportBucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, cfg.ExportBucket)
		if err != nil {
			l.WithError(err).Warn("export bucket unavailable, export disabled")
		} else {
			uploader = gcs
			defer gcs.Close()
		}
	}

	pipe := pipeline.New(provider, logger.WithComponent(l, "pipeline"))

	recordings := services.NewRecordingService(
		sqliterepo.NewRecordingRepo(config.DB),
		files,
		pipe,
		uploader,
		logger.WithComponent(l, "recordings"),
	)

	session := recorder.NewSession(
		audio.NewFFmpegCapture(),
		files,
		provider,
		logger.WithComponent(l, "recorder"),
		recorder.Options{
			ScratchDir:        cfg.ScratchDir,
			RecordingsDir:     cfg.RecordingsDir,
			ChunkInterval:     cfg.ChunkInterval,
			LiveTranscription: cfg.LiveTranscription,
		},
	)
	capture := services.NewCaptureService(session, recordings)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Session:   handlers.NewSessionHandler(capture),
		Recording: handlers.NewRecordingHandler(recordings),
		WS:        handlers.NewWSHandler(capture, logger.WithComponent(l, "ws")),
	})

	l.WithField("port", cfg.Port).Info("gravadorjuridico listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
