package ports

import (
	"context"
	"time"
)

// CachedResponse represents a cached HTTP response.
type CachedResponse struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
	CreatedAt  time.Time         `json:"created_at"`
}

type (
	// IdempotencyCache stores replayable responses keyed by idempotency key.
	IdempotencyCache interface {
		// Get returns nil, nil if the key does not exist.
		Get(ctx context.Context, key string) (*CachedResponse, error)
		Set(ctx context.Context, key string, response *CachedResponse, ttl time.Duration) error

		// SetLock returns false when another request holds the key.
		SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
		ReleaseLock(ctx context.Context, key string) error
		IsHealthy(ctx context.Context) bool
	}

	// CacheInvalidator drops cached query results after a write.
	CacheInvalidator interface {
		Invalidate(ctx context.Context) error
	}
)
