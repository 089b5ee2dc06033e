package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/pkg/logger"
)

// Recovery turns a panic into the generic 500 envelope.
func Recovery(log logger.Logger, errorWriter shared.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if rvr == http.ErrAbortHandler {
					// the client connection is gone, let net/http abort it
					panic(rvr)
				}

				var err error
				switch v := rvr.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}

				reqLog := log.WithContext(r.Context())
				reqLog.Error().
					Err(err).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("panic recovered")

				if r.Header.Get("Connection") == "Upgrade" {
					return
				}

				errorWriter.Write(w, r, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
