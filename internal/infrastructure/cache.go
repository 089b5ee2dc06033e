package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	healthCheckTimeout = 3 * time.Second
	scanBatchSize      = 100
)

// compareAndSwapScript sets KEYS[1] to ARGV[2] with a PX of ARGV[3] only while it still holds ARGV[1].
var compareAndSwapScript = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if current == false or tonumber(current) ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
`)

// KeydbClient is the shared KeyDB/Redis connection behind the query cache,
// the idempotency store and the rate limit store.
type KeydbClient struct {
	client *redis.Client
	logger logger.Logger
	expiry time.Duration
}

func NewKeyDBClient(cfg config.Cache, log logger.Logger) *KeydbClient {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           int(cfg.DB),
		PoolSize:     int(cfg.PoolSize),
		MinIdleConns: int(cfg.MinIdleConns),
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   int(cfg.MaxRetries),
	})

	return &KeydbClient{
		client: client,
		logger: log.Component("keydb"),
		expiry: cfg.DefaultExpiry,
	}
}

func (c *KeydbClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *KeydbClient) Close() error {
	return c.client.Close()
}

// IsHealthy pings with a short deadline of its own.
func (c *KeydbClient) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	return c.Ping(ctx) == nil
}

// Get returns redis.Nil when the key does not exist.
func (c *KeydbClient) Get(ctx context.Context, key string) ([]byte, error) {
	defer c.trace("get", key, time.Now())

	result, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error().Err(err).Str("key", key).Msg("keydb get operation failed")
		}

		return nil, err
	}

	return result, nil
}

// Set falls back to the configured default expiry when ttl is zero.
func (c *KeydbClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.expiry
	}

	defer c.trace("set", key, time.Now())

	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *KeydbClient) Lock(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	defer c.trace("setnx", key, time.Now())

	acquired, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring lock: %w", err)
	}

	return acquired, nil
}

func (c *KeydbClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	defer c.trace("del", keys[0], time.Now())

	return c.client.Del(ctx, keys...).Err()
}

// DeletePattern removes every key matching a glob pattern and reports how many were dropped.
func (c *KeydbClient) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := c.Scan(ctx, cursor, pattern, scanBatchSize)
		if err != nil {
			return removed, err
		}

		if err := c.Delete(ctx, keys...); err != nil {
			return removed, fmt.Errorf("deleting keys: %w", err)
		}

		removed += len(keys)

		if cursor = next; cursor == 0 {
			return removed, nil
		}
	}
}

func (c *KeydbClient) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("scanning keys: %w", err)
	}

	return keys, nextCursor, nil
}

// TTL returns 0 when the remaining lifetime cannot be read.
func (c *KeydbClient) TTL(ctx context.Context, key string) time.Duration {
	result, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to get TTL")

		return 0
	}

	return result
}

// GetInt64 reads a counter and the time of the read. A missing key reads as -1,
// which is what the GCRA rate limiter expects.
func (c *KeydbClient) GetInt64(ctx context.Context, key string) (int64, time.Time, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, time.Now(), nil
		}

		return 0, time.Time{}, err
	}

	return val, time.Now(), nil
}

func (c *KeydbClient) SetInt64NX(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

func (c *KeydbClient) CompareAndSwapInt64(ctx context.Context, key string, old, new int64, ttl time.Duration) (bool, error) {
	result, err := compareAndSwapScript.Run(ctx, c.client, []string{key}, old, new, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (c *KeydbClient) trace(operation, key string, start time.Time) {
	c.logger.Debug().
		Str("operation", operation).
		Str("key", key).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("keydb operation")
}
