package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS answers preflight requests and sets the allow headers for the configured origins.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders: []string{
			"Authorization", "Content-Type", RequestIDHeader, CorrelationIDHeader,
			"If-None-Match", "traceparent", "tracestate", "Idempotency-Key",
		},
		ExposedHeaders: []string{
			RequestIDHeader, CorrelationIDHeader, "RateLimit-Limit", "RateLimit-Remaining",
			"RateLimit-Reset", "Retry-After", "ETag",
		},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           86400,
	})

	return c.Handler
}
