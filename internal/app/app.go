package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brenlab/bren-backend/internal/db"
	"github.com/brenlab/bren-backend/internal/observability"
	"github.com/brenlab/bren-backend/internal/platform/logger"
	"github.com/brenlab/bren-backend/internal/realtime"
)

type App struct {
	Log             *logger.Logger
	DB              *gorm.DB
	Router          *gin.Engine
	Cfg             Config
	Repos           Repos
	Services        Services
	Hub             *realtime.Hub
	cancel          context.CancelFunc
	tracingShutdown func(context.Context) error
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

	tracingShutdown := observability.InitTracing(context.Background(), log)

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

	hub := realtime.NewHub(log)

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(log, cfg, reposet, hub)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, serviceset, hub)
	mw, err := wireMiddleware(log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	router := wireRouter(handlerset, mw)

	return &App{
		Log:             log,
		DB:              theDB,
		Router:          router,
		Cfg:             cfg,
		Repos:           reposet,
		Services:        serviceset,
		Hub:             hub,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Start launches the redis forwarder when the bus is configured, so events
// published on other instances reach this hub.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.Bus != nil {
		if err := a.Services.Bus.StartForwarder(ctx, func(event realtime.StatusEvent) {
			a.Hub.Publish(event)
		}); err != nil {
			return fmt.Errorf("start status forwarder: %w", err)
		}
	}
	return nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	if a.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.tracingShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
