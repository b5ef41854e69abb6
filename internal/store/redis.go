package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/logic"
)

// RedisConfig selects the server and key namespace.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis stores each document as a JSON string under Prefix+path.
// Create-only semantics come from SETNX.
type Redis struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
	ready  atomic.Bool
}

// NewRedis creates a Redis store.
func NewRedis(cfg RedisConfig, log *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{client: client, prefix: cfg.Prefix, log: log}
}

// Authenticate pings the server.
func (r *Redis) Authenticate(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.ready.Store(true)
	return nil
}

// Ready reports whether the server answered a ping.
func (r *Redis) Ready() bool {
	return r.ready.Load()
}

// Key returns the Redis key for a document path.
func (r *Redis) Key(path string) string {
	return r.prefix + path
}

// Create stores rec at path unless the key already exists.
func (r *Redis) Create(ctx context.Context, path string, rec logic.Record) error {
	if !r.Ready() {
		return ErrNotReady
	}
	if _, _, err := SplitPath(path); err != nil {
		return fmt.Errorf("%w: %q", err, path)
	}

	body, err := EncodeJSON(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	created, err := r.client.SetNX(ctx, r.Key(path), body, 0).Result()
	if err != nil {
		return fmt.Errorf("redis create %s: %w", path, err)
	}
	if !created {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	r.log.Debug("redis document created", zap.String("key", r.Key(path)))
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
