package middleware

import (
	"bytes"
	"net/http"
	"slices"
	"time"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/pkg/idempotency"
	"github.com/architeacher/natours/pkg/logger"
)

// Idempotency replays the stored response of a successful request that carried the
// same key. Keys are scoped by the caller's credential, or its IP when anonymous.
func Idempotency(
	cache ports.IdempotencyCache,
	cfg config.Idempotency,
	authCookie string,
	errorWriter shared.ErrorWriter,
	log logger.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || !slices.Contains(cfg.RequiredMethods, r.Method) {
				next.ServeHTTP(w, r)

				return
			}

			key := r.Header.Get(cfg.HeaderName)
			if key == "" {
				next.ServeHTTP(w, r)

				return
			}

			if err := idempotency.Validate(key); err != nil {
				errorWriter.WriteStatus(w, r, http.StatusBadRequest, err.Error())

				return
			}

			scope := BearerToken(r, authCookie)
			if scope == "" {
				scope = ClientIP(r)
			}

			cacheKey := idempotency.BuildCacheKey(r.Method, r.URL.Path, scope, key)
			ctx := r.Context()
			reqLog := log.WithContext(ctx)

			degrade := func(err error, msg string) {
				reqLog.Warn().Err(err).Msg(msg)

				if cfg.GracefulDegraded {
					next.ServeHTTP(w, r)

					return
				}

				errorWriter.WriteStatus(w, r, http.StatusServiceUnavailable,
					"Idempotency is temporarily unavailable, please try again later.")
			}

			cached, err := cache.Get(ctx, cacheKey)
			if err != nil {
				degrade(err, "idempotency lookup failed")

				return
			}

			if cached != nil {
				for name, value := range cached.Headers {
					w.Header().Set(name, value)
				}

				w.Header().Set(cfg.ReplayedHeader, "true")
				w.WriteHeader(cached.StatusCode)
				_, _ = w.Write(cached.Body)

				return
			}

			acquired, err := cache.SetLock(ctx, cacheKey, cfg.LockTTL)
			if err != nil {
				degrade(err, "idempotency lock failed")

				return
			}

			if !acquired {
				errorWriter.WriteStatus(w, r, http.StatusConflict,
					"A request with this idempotency key is already being processed.")

				return
			}

			defer func() {
				if err := cache.ReleaseLock(ctx, cacheKey); err != nil {
					reqLog.Warn().Err(err).Msg("failed to release idempotency lock")
				}
			}()

			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r.WithContext(idempotency.WithKey(ctx, key)))

			if recorder.statusCode < http.StatusOK || recorder.statusCode >= http.StatusMultipleChoices {
				return
			}

			response := &ports.CachedResponse{
				StatusCode: recorder.statusCode,
				Headers:    recorder.capturedHeaders(),
				Body:       recorder.body.Bytes(),
				CreatedAt:  time.Now().UTC(),
			}

			if err := cache.Set(ctx, cacheKey, response, cfg.CacheTTL); err != nil {
				reqLog.Warn().Err(err).Msg("failed to store idempotent response")
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        *bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}

	r.statusCode = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}

	r.body.Write(b)

	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) capturedHeaders() map[string]string {
	headers := make(map[string]string)

	for name, values := range r.ResponseWriter.Header() {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	return headers
}
