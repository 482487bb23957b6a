package main

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/repository"
	"github.com/noah-isme/certified-copy-api/internal/service"
	"github.com/noah-isme/certified-copy-api/pkg/cache"
	"github.com/noah-isme/certified-copy-api/pkg/config"
	"github.com/noah-isme/certified-copy-api/pkg/logger"
)

type storeOpener func(ctx context.Context, cfg *config.Config) (*repository.ApplicationStore, func() error, error)

// cacheOpener returns the dashboard cache repository shared with the API server, or nil when caching is off.
type cacheOpener func(ctx context.Context, cfg *config.Config) (service.CacheRepository, func() error, error)

type commandContext struct {
	backendFlag string
	dataDirFlag string

	open      storeOpener
	openCache cacheOpener

	once        sync.Once
	store       *repository.ApplicationStore
	closer      func() error
	cache       *service.CacheService
	cacheCloser func() error
	logger      *zap.Logger
	openErr     error
}

func newCommandContext() *commandContext {
	return &commandContext{open: openConfiguredStore, openCache: openConfiguredCache}
}

func openConfiguredStore(ctx context.Context, cfg *config.Config) (*repository.ApplicationStore, func() error, error) {
	backend, closer, err := repository.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewApplicationStore(backend), closer, nil
}

func openConfiguredCache(ctx context.Context, cfg *config.Config) (service.CacheRepository, func() error, error) {
	if !cfg.Dashboard.CacheEnabled {
		return nil, nil, nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewCacheRepository(client, cfg.Redis.KeyPrefix), client.Close, nil
}

// ensureStore loads configuration once, applies flag overrides and opens the backend.
func (c *commandContext) ensureStore(ctx context.Context) (*repository.ApplicationStore, error) {
	c.once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.openErr = err
			return
		}
		if v := strings.TrimSpace(c.backendFlag); v != "" {
			cfg.Store.Backend = strings.ToLower(v)
		}
		if v := strings.TrimSpace(c.dataDirFlag); v != "" {
			cfg.Store.DataDir = v
		}
		if cfg.Log.Format == "" {
			cfg.Log.Format = "console"
		}
		if c.logger == nil {
			if l, err := logger.New(cfg); err == nil {
				c.logger = l
			}
		}
		c.store, c.closer, c.openErr = c.open(ctx, cfg)
		if c.openErr != nil {
			return
		}
		c.cache = c.dashboardCache(ctx, cfg)
	})
	return c.store, c.openErr
}

// dashboardCache connects to the server's dashboard cache so store writes made here invalidate it.
// Connection failures are logged and leave the cache disabled.
func (c *commandContext) dashboardCache(ctx context.Context, cfg *config.Config) *service.CacheService {
	var repo service.CacheRepository
	if c.openCache != nil {
		r, closer, err := c.openCache(ctx, cfg)
		if err != nil {
			c.log().Warn("dashboard cache unavailable; cached dashboards may stay stale until they expire", zap.Error(err))
		} else if r != nil {
			repo, c.cacheCloser = r, closer
		}
	}
	return service.NewCacheService(repo, nil, cfg.Dashboard.CacheTTL, c.log(), repo != nil)
}

func (c *commandContext) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

func (c *commandContext) close() error {
	if c.cacheCloser != nil {
		_ = c.cacheCloser()
	}
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
