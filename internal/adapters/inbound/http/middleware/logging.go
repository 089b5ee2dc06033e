package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/architeacher/natours/pkg/logger"
)

const skipAccessLogKey contextKey = "skip_access_log"

var healthEndpoints = []string{"/health", "/healthz", "/api/v1/health"}

// HealthCheckFilter keeps health probes out of the access log unless asked otherwise.
func HealthCheckFilter(logHealthChecks bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logHealthChecks && isHealthEndpoint(r.URL.Path) {
				r = r.WithContext(context.WithValue(r.Context(), skipAccessLogKey, true))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AccessLogger writes one line per request. 4xx log at warn and 5xx at error.
func AccessLogger(log logger.Logger, includeQueryParams bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip, _ := r.Context().Value(skipAccessLogKey).(bool); skip {
				next.ServeHTTP(w, r)

				return
			}

			start := time.Now()
			recorder := NewStatusRecorder(w)

			next.ServeHTTP(recorder, r)

			reqLogger := log.WithContext(r.Context()).With().Str("component", "http").Logger()

			event := reqLogger.Info()
			switch status := recorder.StatusCode(); {
			case status >= http.StatusInternalServerError:
				event = reqLogger.Error()
			case status >= http.StatusBadRequest:
				event = reqLogger.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Int("status", recorder.StatusCode()).
				Uint64("bytes", recorder.BytesWritten()).
				Int64("duration_ms", time.Since(start).Milliseconds())

			if includeQueryParams && r.URL.RawQuery != "" {
				event.Str("query", r.URL.RawQuery)
			}

			if referer := r.Referer(); referer != "" {
				event.Str("referer", referer)
			}

			event.Send()
		})
	}
}

func isHealthEndpoint(path string) bool {
	path = strings.TrimSuffix(path, "/")

	for _, endpoint := range healthEndpoints {
		if path == endpoint {
			return true
		}
	}

	return false
}
