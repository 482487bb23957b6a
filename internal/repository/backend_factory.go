package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/certified-copy-api/pkg/cache"
	"github.com/noah-isme/certified-copy-api/pkg/config"
	"github.com/noah-isme/certified-copy-api/pkg/database"
)

// OpenBackend builds the persistence backend selected by STORE_BACKEND. The returned
// closer releases any connection the backend opened.
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return NewMemoryBackend(), noop, nil
	case config.BackendFile, "":
		backend, err := NewFileBackend(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return backend, noop, nil
	case config.BackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisBackend(client, cfg.Redis.KeyPrefix), client.Close, nil
	case config.BackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return migrated(ctx, NewSQLBackend(db), db.Close)
	case config.BackendSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		return migrated(ctx, NewSQLBackend(db), db.Close)
	case config.BackendMongo:
		client, collection, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		return NewMongoBackend(collection), func() error { return client.Disconnect(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func migrated(ctx context.Context, backend *SQLBackend, closer func() error) (Backend, func() error, error) {
	if err := backend.Migrate(ctx); err != nil {
		_ = closer()
		return nil, nil, err
	}
	return backend, closer, nil
}
