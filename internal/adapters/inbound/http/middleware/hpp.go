package middleware

import (
	"net/http"
	"slices"
)

// ParameterPollution keeps only the last value of a repeated query key unless the
// key is whitelisted, in which case all values survive as a membership filter.
func ParameterPollution(whitelist []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()

			changed := false
			for key, values := range query {
				if len(values) > 1 && !slices.Contains(whitelist, key) {
					query[key] = values[len(values)-1:]
					changed = true
				}
			}

			if changed {
				r.URL.RawQuery = query.Encode()
			}

			next.ServeHTTP(w, r)
		})
	}
}
