package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/feralops/tnr-backend/internal/db"
	"github.com/feralops/tnr-backend/internal/http"
	"github.com/feralops/tnr-backend/internal/observability"
	"github.com/feralops/tnr-backend/internal/platform/logger"
	"github.com/feralops/tnr-backend/internal/realtime"
	"github.com/feralops/tnr-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Server   *http.Server
	Hub      *realtime.SSEHub
	Repos    Repos
	Services Services

	sseBus       bus.Bus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	// Root context for background loops (metrics collectors, SSE
	// forwarder). Canceled by Close.
	ctx, cancel := context.WithCancel(context.Background())

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "tnr-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		cancel()
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		cancel()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	hub := realtime.NewSSEHub(log)

	reposet := wireRepos(theDB, log)

	serviceset, sseBus, err := wireServices(ctx, theDB, log, cfg, reposet, hub)
	if err != nil {
		cancel()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, reposet, serviceset, hub)
	server := wireServer(log, handlerset)

	if metrics != nil {
		metrics.StartServer(ctx, log, cfg.MetricsAddr)
		metrics.StartPostgresCollector(ctx, log, theDB)
		metrics.StartRunDepthCollector(ctx, log, theDB)
		if cfg.RedisAddr != "" {
			metrics.StartRedisCollector(ctx, log, cfg.RedisAddr)
		}
		metrics.StartSLOEvaluator(ctx, log)
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Server:       server,
		Hub:          hub,
		Repos:        reposet,
		Services:     serviceset,
		sseBus:       sseBus,
		otelShutdown: otelShutdown,
		cancel:       cancel,
	}, nil
}

// Run blocks serving HTTP until the listener fails or Shutdown runs.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Server.Run(":" + a.Cfg.Port)
}

// Shutdown drains in-flight HTTP work, bounded by ShutdownTimeout.
func (a *App) Shutdown() {
	if a == nil || a.Server == nil {
		return
	}
	if err := a.Server.Shutdown(a.Cfg.ShutdownTimeout); err != nil {
		a.Log.Warn("HTTP shutdown incomplete", "error", err)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.sseBus != nil {
		_ = a.sseBus.Close()
		a.sseBus = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
