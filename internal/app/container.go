package app

import (
	"context"
	"time"

	"github.com/archway-dev/archway/internal/application/analyze"
	"github.com/archway-dev/archway/internal/domain"
	"github.com/archway-dev/archway/internal/infrastructure/cache"
	"github.com/archway-dev/archway/internal/infrastructure/config"
	"github.com/archway-dev/archway/internal/infrastructure/history"
	"github.com/archway-dev/archway/internal/infrastructure/providers"
	"github.com/archway-dev/archway/internal/infrastructure/ratelimit"
	"github.com/archway-dev/archway/internal/pkg/logger"
	"github.com/archway-dev/archway/internal/pkg/retry"
	"github.com/archway-dev/archway/internal/ports"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigLoader   *config.FileLoader
	AnalyzeService *analyze.Service
	Registry       *providers.Registry
	ResultCache    *cache.MemoryCache
	HistoryStore   *history.SQLiteStore
	Logger         ports.Logger
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewStd(verbose)

	registry, err := providers.NewFactory().BuildRegistry(cfg.Providers)
	if err != nil {
		return nil, err
	}

	historyStore, err := history.NewSQLiteStore(cfg.History)
	if err != nil {
		return nil, err
	}

	resultCache := cache.New(cfg.Cache)

	service, err := analyze.NewService(analyze.Deps{
		Registry:       registry,
		Cache:          resultCache,
		Limiter:        ratelimit.New(cfg.RateLimit),
		Retry:          retry.New(cfg.Retry),
		History:        historyStore,
		Logger:         log,
		DefaultTimeout: time.Duration(cfg.Defaults.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:         cfg,
		ConfigLoader:   cfgLoader,
		AnalyzeService: service,
		Registry:       registry,
		ResultCache:    resultCache,
		HistoryStore:   historyStore,
		Logger:         log,
	}, nil
}

// Close shuts the container down in reverse dependency order: the orchestrator
// drains its persistence queue before the history store is closed.
func (c *Container) Close() error {
	err := c.AnalyzeService.Close()
	if e := c.Registry.CloseAll(); err == nil {
		err = e
	}
	if e := c.HistoryStore.Close(); err == nil {
		err = e
	}
	return err
}
