package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "billing:seen:"

// RedisSeenStore shares the seen-id set between replicas of the module.
type RedisSeenStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisSeenStore connects to Redis and pings it before returning.
func NewRedisSeenStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, logger zerolog.Logger) (*RedisSeenStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis for message deduplication")
	return &RedisSeenStore{
		client: rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "RedisSeenStore").Logger(),
	}, nil
}

func (s *RedisSeenStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	first, err := s.client.SetNX(ctx, redisKeyPrefix+id, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX for %s: %w", id, err)
	}
	return first, nil
}

func (s *RedisSeenStore) Forget(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis DEL for %s: %w", id, err)
	}
	return nil
}

func (s *RedisSeenStore) Close() error {
	return s.client.Close()
}
