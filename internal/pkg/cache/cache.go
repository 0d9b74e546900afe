package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
)

// NewClient creates a Redis (or Dragonfly) client and checks the connection.
// An unreachable server is logged, not fatal: callers degrade to no caching.
func NewClient(ctx context.Context, cfg config.Cache, logger zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr()).Msg("could not connect to cache")
	} else {
		logger.Info().Str("addr", cfg.Addr()).Str("reply", pong).Msg("connected to cache")
	}
	return client
}

// Store adapts a Redis client to the string key/value cache used by lookups.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// Get returns the value for key. A missing key is not an error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key for ttl.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
