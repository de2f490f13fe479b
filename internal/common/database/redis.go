// internal/common/database/redis.go
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendor-onboarding/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps a go-redis client and namespaces every key.
type RedisClient struct {
	Client redis.Cmdable
	prefix string
	closer func() error
}

func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb, prefix: cfg.KeyPrefix, closer: rdb.Close}
}

// NewRedisFromClient wraps an existing client, e.g. redismock or miniredis.
func NewRedisFromClient(client redis.Cmdable, prefix string) *RedisClient {
	return &RedisClient{Client: client, prefix: prefix}
}

// Key joins parts under the configured prefix: "<prefix>:a:b".
func (c *RedisClient) Key(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.prefix + ":" + strings.Join(parts, ":")
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

// IsRedisNil reports a missing key.
func IsRedisNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
