package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/pkg/logger"
)

type RateLimitingTestSuite struct {
	suite.Suite

	log    logger.Logger
	config config.ThrottledRateLimiting
}

// failingStore fails every operation, like an unreachable KeyDB.
type failingStore struct{}

var errStoreDown = errors.New("connection refused")

func (failingStore) GetWithTime(context.Context, string) (int64, time.Time, error) {
	return 0, time.Time{}, errStoreDown
}

func (failingStore) SetIfNotExistsWithTTL(context.Context, string, int64, time.Duration) (bool, error) {
	return false, errStoreDown
}

func (failingStore) CompareAndSwapWithTTL(context.Context, string, int64, int64, time.Duration) (bool, error) {
	return false, errStoreDown
}

func TestRateLimitingTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(RateLimitingTestSuite))
}

func (s *RateLimitingTestSuite) SetupTest() {
	s.log = logger.NewTestLogger()
	s.config = config.ThrottledRateLimiting{
		Enabled:          true,
		MaxRequests:      3,
		Window:           time.Hour,
		BurstSize:        3,
		PathPrefix:       "/api",
		GracefulDegraded: true,
	}
}

func (s *RateLimitingTestSuite) newHandler(cfg config.ThrottledRateLimiting, store throttled.GCRAStoreCtx) http.Handler {
	if store == nil {
		memStore, err := memstore.NewCtx(100)
		s.Require().NoError(err)

		store = memStore
	}

	limiter, err := middleware.ThrottledRateLimiting(cfg, store, newErrorWriter(), s.log)
	s.Require().NoError(err)

	return limiter(okHandler())
}

func (s *RateLimitingTestSuite) serve(handler http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func (s *RateLimitingTestSuite) TestBlocksAfterQuota() {
	handler := s.newHandler(s.config, nil)

	for i := range 3 {
		rec := s.serve(handler, "/api/v1/tours", "10.0.0.1:5000")
		s.Require().Equal(http.StatusOK, rec.Code, "request %d", i+1)
		s.Require().Equal(strconv.Itoa(2-i), rec.Header().Get(middleware.RateLimitRemainingHeader))
	}

	rec := s.serve(handler, "/api/v1/tours", "10.0.0.1:5001")
	s.Require().Equal(http.StatusTooManyRequests, rec.Code)
	s.Require().NotEmpty(rec.Header().Get(middleware.RetryAfterHeader))
	s.Require().Equal("Too many requests! please try again in an hour!", decodeEnvelope(s.T(), rec).Message)
}

func (s *RateLimitingTestSuite) TestQuotaIsPerClientIP() {
	handler := s.newHandler(s.config, nil)

	for range 3 {
		s.serve(handler, "/api/v1/tours", "10.0.0.1:5000")
	}

	s.Require().Equal(http.StatusOK, s.serve(handler, "/api/v1/tours", "10.0.0.2:5000").Code)
}

func (s *RateLimitingTestSuite) TestIgnoresPathsOutsidePrefix() {
	handler := s.newHandler(s.config, nil)

	for range 5 {
		rec := s.serve(handler, "/health", "10.0.0.1:5000")
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Require().Empty(rec.Header().Get(middleware.RateLimitLimitHeader))
	}
}

func (s *RateLimitingTestSuite) TestStoreFailure() {
	cases := []struct {
		name     string
		graceful bool
		expected int
	}{
		{name: "graceful degradation lets requests through", graceful: true, expected: http.StatusOK},
		{name: "strict mode rejects", graceful: false, expected: http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			cfg := s.config
			cfg.GracefulDegraded = tc.graceful

			rec := s.serve(s.newHandler(cfg, failingStore{}), "/api/v1/tours", "10.0.0.1:5000")
			s.Require().Equal(tc.expected, rec.Code)
		})
	}
}
