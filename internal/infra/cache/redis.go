package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"recipebox/internal/domain"
	"recipebox/internal/infra/metrics"
)

const scanBatch = 100

// RedisCache реализует domain.Cache через Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedis создаёт кэш.
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get возвращает значение или domain.ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) (data []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("redis", "get", "cache", start, ignoreMiss(err)) }()

	data, err = c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	return data, err
}

// Set задаёт значение.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("redis", "set", "cache", start, err) }()
	return c.client.Set(ctx, key, value, ttl).Err()
}

// DeletePrefix удаляет все ключи с префиксом. Ключи перебираются через SCAN
// пачками и удаляются UNLINK без блокировки сервера.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) (deleted int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("redis", "delete_prefix", "cache", start, err) }()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Unlink(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func ignoreMiss(err error) error {
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil
	}
	return err
}
