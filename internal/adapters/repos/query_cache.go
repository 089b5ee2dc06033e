package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/architeacher/natours/internal/infrastructure"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	queryCacheVersion = "v1"
	queryKeyPrefix    = "query:" + queryCacheVersion + ":"

	StatsCacheNamespace = "tours:stats"
	PlanCacheNamespace  = "tours:plan"
)

// QueryCache stores JSON encoded query results under a hash of the query.
// It backs the query caching decorator and is dropped wholesale after writes.
type QueryCache[Q any, R any] struct {
	client    *infrastructure.KeydbClient
	namespace string
	logger    logger.Logger
}

var _ ports.CacheInvalidator = (*QueryCache[struct{}, struct{}])(nil)

func NewQueryCache[Q any, R any](client *infrastructure.KeydbClient, namespace string, log logger.Logger) *QueryCache[Q, R] {
	return &QueryCache[Q, R]{
		client:    client,
		namespace: namespace,
		logger:    log.Component("query_cache"),
	}
}

func (c *QueryCache[Q, R]) Get(ctx context.Context, query Q) (R, bool, error) {
	var result R

	key, err := c.key(query)
	if err != nil {
		return result, false, err
	}

	data, err := c.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return result, false, nil
		}

		return result, false, fmt.Errorf("getting cached query: %w", err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, false, fmt.Errorf("unmarshalling cached query: %w", err)
	}

	return result, true, nil
}

func (c *QueryCache[Q, R]) Set(ctx context.Context, query Q, result R, ttl time.Duration) error {
	key, err := c.key(query)
	if err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling query result: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("setting cached query: %w", err)
	}

	return nil
}

// Invalidate removes every cached result of the namespace.
func (c *QueryCache[Q, R]) Invalidate(ctx context.Context) error {
	removed, err := c.client.DeletePattern(ctx, queryKeyPrefix+c.namespace+":*")
	if err != nil {
		return fmt.Errorf("invalidating %s cache: %w", c.namespace, err)
	}

	c.logger.Debug().Str("namespace", c.namespace).Int("removed", removed).Msg("query cache invalidated")

	return nil
}

func (c *QueryCache[Q, R]) key(query Q) (string, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("hashing query: %w", err)
	}

	return queryKeyPrefix + c.namespace + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
