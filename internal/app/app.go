// Package app wires together every component of the feedback intelligence
// service (config, clients, repositories, services, HTTP handlers, and the
// enrichment worker pools) into one App, grounded on the teacher's
// internal/app package (app.go, repos.go, clients.go, services.go,
// handlers.go, middleware.go, router.go): one file per wiring concern, a
// single New() that fails fast on any misconfiguration.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/db"
	"github.com/feedback-intel/core/internal/enrichment"
	"github.com/feedback-intel/core/internal/observability"
	"github.com/feedback-intel/core/internal/platform/logger"
)

type App struct {
	Log     *logger.Logger
	DB      *gorm.DB
	Router  *gin.Engine
	Cfg     config.Config
	Repos   Repos
	Clients Clients
	Services Services
	Metrics *observability.Metrics

	cancel context.CancelFunc
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

	log.Info("loading configuration")
	cfg := config.Load(log)

	store, err := db.NewService(cfg, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	metrics := observability.New()

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(store.DB(), log)
	serviceset := wireServices(log, store, cfg, reposet, clients)
	handlerset := wireHandlers(log, cfg, reposet, serviceset)
	middleware := wireMiddleware(log, cfg, serviceset.Auth)
	router := wireRouter(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:      log,
		DB:       store.DB(),
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Clients:  clients,
		Services: serviceset,
		Metrics:  metrics,
	}, nil
}

// Start launches every enrichment worker pool built by wireServices (one
// per queue) in the background. cmd/worker does not call it; it builds its
// own pool set and starts it with StartPools.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	for _, pool := range a.Services.Pools {
		pool.Start(ctx)
	}
}

// StartPools launches a caller-supplied set of worker pools instead of the
// default set built by wireServices, for cmd/worker's --queues/--concurrency
// flags which rebuild pools against a restricted queue list and an override
// concurrency.
func (a *App) StartPools(pools []*enrichment.Pool) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	for _, pool := range pools {
		pool.Start(ctx)
	}
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
	if a.Log != nil {
		a.Log.Sync()
	}
}
