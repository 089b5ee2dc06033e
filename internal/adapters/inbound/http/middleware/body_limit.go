package middleware

import (
	"net/http"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
)

// BodyLimit rejects declared oversized bodies up front and caps the rest while they are read.
func BodyLimit(limit int64, errorWriter shared.ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				errorWriter.WriteStatus(w, r, http.StatusRequestEntityTooLarge, "Request body is too large.")

				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}

			next.ServeHTTP(w, r)
		})
	}
}
