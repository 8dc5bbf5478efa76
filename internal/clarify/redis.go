// internal/clarify/redis.go
package clarify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nlq-resolver/internal/common/config"
	"nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/models"
)

const sessionKeyPrefix = "resolver:session:"

// RedisStore persists pending queries in Redis so clarification rounds
// survive restarts and can be answered by any instance. Expiry is handled
// by the key TTL; there is no sweeper.
type RedisStore struct {
	client *redis.Client
	log    logger.Logger
}

// NewRedisStore creates a RedisStore from configuration.
func NewRedisStore(cfg config.RedisConfig, log logger.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	return &RedisStore{client: client, log: log}
}

// NewRedisStoreWithClient wraps an existing client, mainly for tests.
func NewRedisStoreWithClient(client *redis.Client, log logger.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*models.PendingQuery, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, errors.NewSessionNotFoundError(token)
	}
	if err != nil {
		return nil, errors.NewSessionStoreError(err)
	}

	var pending models.PendingQuery
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, errors.NewSessionStoreError(err)
	}
	return &pending, nil
}

func (s *RedisStore) Put(ctx context.Context, pending *models.PendingQuery, ttl time.Duration) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return errors.NewSessionStoreError(err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+pending.Token, raw, ttl).Err(); err != nil {
		return errors.NewSessionStoreError(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return errors.NewSessionStoreError(err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
