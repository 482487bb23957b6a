package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisBackend stores each key as a Redis string under a common prefix.
type RedisBackend struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBackend constructs the backend. The prefix namespaces keys in a shared database.
func NewRedisBackend(client redis.Cmdable, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// LoadAll implements Backend.
func (b *RedisBackend) LoadAll(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// SaveAll implements Backend.
func (b *RedisBackend) SaveAll(ctx context.Context, key string, payload []byte) error {
	if err := b.client.Set(ctx, b.prefix+key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Lock implements Locker with a SET NX lease, so several API replicas can share one database.
func (b *RedisBackend) Lock(ctx context.Context) (func() error, error) {
	lockKey := b.prefix + "lock"
	token := uuid.NewString()
	err := acquireLease(ctx, func() (bool, error) {
		ok, err := b.client.SetNX(ctx, lockKey, token, leaseTTL).Result()
		if err != nil {
			return false, fmt.Errorf("redis lock: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	return func() error {
		return releaseLockScript.Run(context.Background(), b.client, []string{lockKey}, token).Err()
	}, nil
}
