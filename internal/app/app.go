package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/hswtrack/compliance-backend/internal/db"
	apihttp "github.com/hswtrack/compliance-backend/internal/http"
	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apihttp.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Progress bus.Bus
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
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	progress := wireProgressBus(log)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, progress)
	handlerset := wireHandlers(log, serviceset, reposet)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, handlerset, middleware)

	return &App{
		Log:      log,
		DB:       theDB,
		Server:   server,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Progress: progress,
	}, nil
}

// Run seeds the bootstrap account and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.Services.Bootstrap.Run(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if a.Cfg.SweepOnStart {
		if flipped, err := a.Services.Records.SweepExpiry(ctx); err != nil {
			a.Log.Warn("Startup expiry sweep failed", "error", err)
		} else if flipped > 0 {
			a.Log.Info("Startup expiry sweep", "expired", flipped)
		}
	}
	a.Log.Info("HTTP server starting", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Progress != nil {
		_ = a.Progress.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
