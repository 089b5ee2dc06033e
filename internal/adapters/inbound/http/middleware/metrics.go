package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/architeacher/natours/pkg/metrics"
)

const (
	httpMethodKey     = "http.method"
	httpRouteKey      = "http.route"
	httpStatusCodeKey = "http.status_code"

	httpRequestTotal    = "http_requests_total"
	httpRequestDuration = "http_request_duration_seconds"
	httpResponseSize    = "http_response_size_bytes"
)

// Metrics counts requests per route pattern, so ids in the path do not explode the series.
func Metrics(metricsClient metrics.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := NewStatusRecorder(w)

			next.ServeHTTP(recorder, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			attrs := []attribute.KeyValue{
				attribute.String(httpMethodKey, r.Method),
				attribute.String(httpRouteKey, route),
				attribute.String(httpStatusCodeKey, strconv.Itoa(recorder.StatusCode())),
			}

			ctx := r.Context()
			metricsClient.Inc(ctx, httpRequestTotal, int64(1), attrs...)
			metricsClient.Inc(ctx, httpRequestDuration, time.Since(start).Seconds(), attrs...)
			metricsClient.Inc(ctx, httpResponseSize, int64(recorder.BytesWritten()), attrs...)
		})
	}
}
