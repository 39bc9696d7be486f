// Package app wires configuration, storage, the pipeline engines, and the
// HTTP surface into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/distill-app/core/internal/config"
	"github.com/distill-app/core/internal/database"
	"github.com/distill-app/core/internal/middleware"
	"github.com/distill-app/core/internal/modules/pipeline/preprocess"
	"github.com/distill-app/core/internal/modules/pipeline/relate"
	"github.com/distill-app/core/internal/modules/pipeline/summarize"
	pkgcron "github.com/distill-app/core/internal/pkg/cron"
	"github.com/distill-app/core/internal/pkg/embeddings"
	jwtpkg "github.com/distill-app/core/internal/pkg/jwt"
	pkgredis "github.com/distill-app/core/internal/pkg/redis"
	"github.com/distill-app/core/internal/pkg/taskqueue"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rc     *pkgredis.Client
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → engines → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	jwtpkg.SetSecret(cfg.JWTSecret)

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	embedder, err := embeddings.NewClient(embeddings.Config{
		Endpoint: cfg.Embedding.Endpoint,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
		Timeout:  time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		CacheTTL: time.Duration(cfg.Embedding.CacheTTLHours) * time.Hour,
	}, rc)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	var transcriber preprocess.Transcriber
	if cfg.Transcription.APIKey != "" {
		transcriber, err = preprocess.NewWhisperTranscriber(cfg.Transcription)
		if err != nil {
			return nil, fmt.Errorf("transcription: %w", err)
		}
	}
	dispatcher := preprocess.NewDispatcher(
		preprocess.NewYouTubeTranscriptClient(cfg.Transcripts),
		transcriber,
		logger.Named("preprocess"),
	)

	summarizer := summarize.NewEngine(cfg, logger.Named("summarize"))
	relater := relate.NewEngine(db, embedder, cfg.Pipeline, logger.Named("relate"))
	tasks := taskqueue.NewService(rc)

	ctx, cancel := context.WithCancel(context.Background())
	sched := pkgcron.New()
	registerCronJobs(sched, db, relater, tasks, logger.Named("cron"))
	go sched.Start(ctx)

	app := &App{cfg: cfg, router: router, db: db, rc: rc, logger: logger, cancel: cancel, sched: sched}
	app.registerRoutes(dispatcher, summarizer, relater, tasks)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines and closes shared connections.
func (a *App) Shutdown() {
	a.cancel()
	if err := a.rc.Close(); err != nil {
		a.logger.Warn("closing redis", zap.Error(err))
	}
}
