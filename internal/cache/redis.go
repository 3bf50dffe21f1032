package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the small key/value surface the pipeline needs: a "seen URL"
// memo in front of the storage dedup check and once-per-key guards.
type Cache interface {
	IsProcessed(ctx context.Context, hash string) (bool, error)
	MarkProcessed(ctx context.Context, hash string, ttl time.Duration) error
	// AcquireOnce reports true for the first caller of key within ttl.
	AcquireOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops a guard taken with AcquireOnce.
	Release(ctx context.Context, key string) error
	Close() error
}

type RedisClient struct {
	client *redis.Client
	prefix string
}

var _ Cache = (*RedisClient)(nil)

func NewRedisClient(redisURL, prefix string) (*RedisClient, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		prefix: prefix,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) urlKey(hash string) string {
	return r.prefix + "url:" + hash
}

func (r *RedisClient) IsProcessed(ctx context.Context, hash string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.urlKey(hash)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return exists > 0, nil
}

func (r *RedisClient) MarkProcessed(ctx context.Context, hash string, ttl time.Duration) error {
	return r.client.Set(ctx, r.urlKey(hash), "1", ttl).Err()
}

func (r *RedisClient) onceKey(key string) string {
	return r.prefix + "once:" + key
}

func (r *RedisClient) AcquireOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.onceKey(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx error: %w", err)
	}
	return ok, nil
}

func (r *RedisClient) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.onceKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}
