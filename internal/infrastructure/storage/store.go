// Package storage provides the key-value stores backing the client session:
// a durable store that survives restarts and a transient store scoped to the
// running process.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	sharedConfig "github.com/shoozy-shop/storefront/internal/shared/config"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// NewDurable builds the durable store selected by cfg.Store. The returned
// close func releases the backing resources and is never nil.
func NewDurable(cfg sharedConfig.SessionConfig, redisCfg sharedConfig.RedisConfig) (Store, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(), nop, nil
	case "file":
		s, err := NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, nop, err
		}
		return s, nop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.GetAddr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		return NewRedisStore(client, cfg.KeyPrefix), client.Close, nil
	default:
		return nil, nop, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
