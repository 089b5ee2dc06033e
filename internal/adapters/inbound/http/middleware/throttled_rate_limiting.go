package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/throttled/throttled/v2"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/pkg/logger"
)

const (
	RateLimitLimitHeader     = "RateLimit-Limit"
	RateLimitRemainingHeader = "RateLimit-Remaining"
	RateLimitResetHeader     = "RateLimit-Reset"
	RetryAfterHeader         = "Retry-After"

	rateLimitedMessage = "Too many requests! please try again in an hour!"
)

// ThrottledRateLimiting applies a per client IP GCRA quota to the paths under cfg.PathPrefix.
func ThrottledRateLimiting(
	cfg config.ThrottledRateLimiting,
	store throttled.GCRAStoreCtx,
	errorWriter shared.ErrorWriter,
	log logger.Logger,
) (func(http.Handler) http.Handler, error) {
	burst := int(cfg.BurstSize) - 1
	if burst < 0 {
		burst = 0
	}

	quota := throttled.RateQuota{
		MaxRate:  throttled.PerDuration(int(cfg.MaxRequests), cfg.Window),
		MaxBurst: burst,
	}

	rateLimiter, err := throttled.NewGCRARateLimiterCtx(store, quota)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, cfg.PathPrefix) {
				next.ServeHTTP(w, r)

				return
			}

			limited, result, err := rateLimiter.RateLimitCtx(r.Context(), "ip:"+ClientIP(r), 1)
			if err != nil {
				reqLog := log.WithContext(r.Context())
				reqLog.Warn().Err(err).Msg("rate limiter store error")

				if cfg.GracefulDegraded {
					next.ServeHTTP(w, r)

					return
				}

				errorWriter.WriteStatus(w, r, http.StatusServiceUnavailable,
					"Rate limiting is temporarily unavailable, please try again later.")

				return
			}

			setRateLimitHeaders(w, result)

			if limited {
				w.Header().Set(RetryAfterHeader, strconv.Itoa(int(result.RetryAfter.Seconds())))
				errorWriter.WriteStatus(w, r, http.StatusTooManyRequests, rateLimitedMessage)

				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// ClientIP prefers the address chi's RealIP middleware resolved into RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func setRateLimitHeaders(w http.ResponseWriter, result throttled.RateLimitResult) {
	w.Header().Set(RateLimitLimitHeader, strconv.Itoa(result.Limit))
	w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(result.Remaining))
	w.Header().Set(RateLimitResetHeader, strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))
}
