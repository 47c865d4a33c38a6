package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/rastion-hub/internal/data/db"
	rhttp "github.com/yungbote/rastion-hub/internal/http"
	"github.com/yungbote/rastion-hub/internal/observability"
	"github.com/yungbote/rastion-hub/internal/platform/blobstore"
	"github.com/yungbote/rastion-hub/internal/platform/events"
	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	blobs        blobstore.Store
	bus          *events.RedisBus
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// NewLogger builds the process logger from config.
func NewLogger(cfg Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Options{Mode: cfg.LogMode, HashSalt: cfg.LogHashSalt})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDatabase connects and migrates the metadata store.
func OpenDatabase(log *logger.Logger, cfg Config) (*db.Service, error) {
	svc, err := db.NewService(log, cfg.DBConfig())
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return svc, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if isProduction(cfg.LogMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.OtelConfig())
	a.Metrics = observability.Init(log, cfg.MetricsEnabled)

	dbService, err := OpenDatabase(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dbService = dbService
	a.DB = dbService.DB()

	a.blobs, err = resolveBlobStore(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, bus, err := wirePublisher(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init event bus: %w", err)
	}
	a.bus = bus

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Repos, a.blobs, publisher)
	handlers := wireHandlers(log, cfg, a.Services, a.Metrics)
	middleware := wireMiddleware(log, a.Services)
	a.Router = wireRouter(log, cfg, handlers, middleware, a.Metrics)
	return a, nil
}

// Start runs the startup category backfill and the metrics collectors.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if _, err := a.Services.Category.Backfill(ctx); err != nil {
		return fmt.Errorf("category backfill: %w", err)
	}
	if a.Metrics != nil {
		var pinger observability.Pinger
		if a.bus != nil {
			pinger = a.bus
		}
		a.Metrics.StartCollector(ctx, a.Log, a.Cfg.MetricsInterval, a.DB, pinger)
	}
	return nil
}

// Run serves the API, and the metrics listener when one is configured,
// until ctx is done or either server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	addr := a.Cfg.ListenAddr()
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", addr)
		srv := &rhttp.Server{Engine: a.Router}
		return srv.Run(gctx, addr)
	})
	if a.Metrics != nil && strings.TrimSpace(a.Cfg.MetricsAddr) != "" {
		g.Go(func() error {
			a.Log.Info("Metrics server listening", "addr", a.Cfg.MetricsAddr)
			return a.Metrics.Serve(gctx, a.Cfg.MetricsAddr)
		})
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.Log.Warn("close event bus", "error", err)
		}
	}
	if c, ok := a.blobs.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.Log.Warn("close object storage", "error", err)
		}
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("close database", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func isProduction(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}
