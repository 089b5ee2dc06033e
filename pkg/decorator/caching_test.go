package decorator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/pkg/decorator"
)

type (
	statsQuery struct {
		Key string
	}

	statsResult struct {
		Value string
	}

	fakeCache struct {
		mu     sync.Mutex
		data   map[string]statsResult
		gets   int
		sets   int
		getErr error
	}

	fakeQueryHandler struct {
		mu     sync.Mutex
		calls  int
		result statsResult
		err    error
	}
)

func (c *fakeCache) Get(_ context.Context, query statsQuery) (statsResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++

	if c.getErr != nil {
		return statsResult{}, false, c.getErr
	}

	result, ok := c.data[query.Key]

	return result, ok, nil
}

func (c *fakeCache) Set(_ context.Context, query statsQuery, result statsResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++
	c.data[query.Key] = result

	return nil
}

func (c *fakeCache) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.gets, c.sets
}

func (h *fakeQueryHandler) Execute(_ context.Context, _ statsQuery) (statsResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls++

	return h.result, h.err
}

func TestQueryCachingDecorator(t *testing.T) {
	t.Parallel()

	handlerErr := errors.New("aggregation failed")

	cases := []struct {
		name           string
		config         decorator.CacheConfig
		nilCache       bool
		cached         map[string]statsResult
		getErr         error
		handlerErr     error
		expectedValue  string
		expectedErr    error
		expectedStatus decorator.CacheStatus
		expectedCalls  int
		expectedSets   int
	}{
		{
			name:           "hit is served from cache",
			config:         decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			cached:         map[string]statsResult{"stats": {Value: "cached"}},
			expectedValue:  "cached",
			expectedStatus: decorator.CacheStatusHit,
		},
		{
			name:           "miss executes and fills the cache",
			config:         decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			expectedValue:  "fresh",
			expectedStatus: decorator.CacheStatusMiss,
			expectedCalls:  1,
			expectedSets:   1,
		},
		{
			name:           "disabled cache is bypassed",
			config:         decorator.CacheConfig{Enabled: false},
			cached:         map[string]statsResult{"stats": {Value: "cached"}},
			expectedValue:  "fresh",
			expectedStatus: decorator.CacheStatusBypass,
			expectedCalls:  1,
		},
		{
			name:           "nil cache is bypassed",
			config:         decorator.CacheConfig{Enabled: true},
			nilCache:       true,
			expectedValue:  "fresh",
			expectedStatus: decorator.CacheStatusBypass,
			expectedCalls:  1,
		},
		{
			name:           "cache read error falls through to the handler",
			config:         decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			getErr:         errors.New("connection refused"),
			expectedValue:  "fresh",
			expectedStatus: decorator.CacheStatusError,
			expectedCalls:  1,
			expectedSets:   1,
		},
		{
			name:           "handler error is not cached",
			config:         decorator.CacheConfig{Enabled: true, TTL: time.Minute},
			handlerErr:     handlerErr,
			expectedErr:    handlerErr,
			expectedStatus: decorator.CacheStatusMiss,
			expectedCalls:  1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cache := &fakeCache{data: map[string]statsResult{}, getErr: tc.getErr}
			for k, v := range tc.cached {
				cache.data[k] = v
			}

			handler := &fakeQueryHandler{result: statsResult{Value: "fresh"}, err: tc.handlerErr}

			var backing decorator.Cache[statsQuery, statsResult] = cache
			if tc.nilCache {
				backing = nil
			}

			decorated := decorator.NewQueryCachingDecorator[statsQuery, statsResult](handler, backing, tc.config)

			ctx := decorator.TrackCacheStatus(context.Background())
			result, err := decorated.Execute(ctx, statsQuery{Key: "stats"})

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.expectedValue, result.Value)
			}

			require.Equal(t, tc.expectedStatus, decorator.GetCacheStatus(ctx))
			require.Equal(t, tc.expectedCalls, handler.calls)

			require.Eventually(t, func() bool {
				_, sets := cache.counts()

				return sets == tc.expectedSets
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestGetCacheStatus_DefaultsToBypass(t *testing.T) {
	t.Parallel()

	require.Equal(t, decorator.CacheStatusBypass, decorator.GetCacheStatus(context.Background()))
	require.Equal(t, decorator.CacheStatusHit,
		decorator.GetCacheStatus(decorator.WithCacheStatus(context.Background(), decorator.CacheStatusHit)))
}
