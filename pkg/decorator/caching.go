package decorator

import (
	"context"
	"sync/atomic"
	"time"
)

type (
	// CacheStatus represents the outcome of a cached query.
	CacheStatus string

	cacheStatusKey struct{}

	CacheConfig struct {
		Enabled bool
		TTL     time.Duration
		// WriteTimeout bounds the background cache write.
		WriteTimeout time.Duration
	}

	CacheGetter[Q Query, R Result] interface {
		Get(ctx context.Context, query Q) (R, bool, error)
	}

	CacheSetter[Q Query, R Result] interface {
		Set(ctx context.Context, query Q, result R, ttl time.Duration) error
	}

	Cache[Q Query, R Result] interface {
		CacheGetter[Q, R]
		CacheSetter[Q, R]
	}

	queryCachingDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		cache  Cache[Q, R]
		config CacheConfig
	}
)

const (
	CacheStatusHit    CacheStatus = "HIT"
	CacheStatusMiss   CacheStatus = "MISS"
	CacheStatusBypass CacheStatus = "BYPASS"
	CacheStatusError  CacheStatus = "ERROR"

	defaultCacheWriteTimeout = 2 * time.Second
)

// TrackCacheStatus prepares ctx so a caching decorator further down the call
// chain can report its outcome back through GetCacheStatus.
func TrackCacheStatus(ctx context.Context) context.Context {
	return WithCacheStatus(ctx, CacheStatusBypass)
}

func WithCacheStatus(ctx context.Context, status CacheStatus) context.Context {
	holder := &atomic.Value{}
	holder.Store(status)

	return context.WithValue(ctx, cacheStatusKey{}, holder)
}

func GetCacheStatus(ctx context.Context) CacheStatus {
	if holder, ok := ctx.Value(cacheStatusKey{}).(*atomic.Value); ok {
		if status, ok := holder.Load().(CacheStatus); ok {
			return status
		}
	}

	return CacheStatusBypass
}

func reportCacheStatus(ctx context.Context, status CacheStatus) {
	if holder, ok := ctx.Value(cacheStatusKey{}).(*atomic.Value); ok {
		holder.Store(status)
	}
}

// NewQueryCachingDecorator serves query results from cache and fills it on a miss.
func NewQueryCachingDecorator[Q Query, R Result](
	base QueryHandler[Q, R],
	cache Cache[Q, R],
	config CacheConfig,
) QueryHandler[Q, R] {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaultCacheWriteTimeout
	}

	return queryCachingDecorator[Q, R]{
		base:   base,
		cache:  cache,
		config: config,
	}
}

func (d queryCachingDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	if !d.config.Enabled || d.cache == nil {
		reportCacheStatus(ctx, CacheStatusBypass)

		return d.base.Execute(ctx, query)
	}

	cached, hit, err := d.cache.Get(ctx, query)

	switch {
	case err != nil:
		reportCacheStatus(ctx, CacheStatusError)
	case hit:
		reportCacheStatus(ctx, CacheStatusHit)

		return cached, nil
	default:
		reportCacheStatus(ctx, CacheStatusMiss)
	}

	result, err := d.base.Execute(ctx, query)
	if err != nil {
		return result, err
	}

	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, d.config.WriteTimeout)
		defer cancel()

		_ = d.cache.Set(ctx, query, result, d.config.TTL)
	}(context.WithoutCancel(ctx))

	return result, nil
}
