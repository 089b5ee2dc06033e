package middleware_test

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
)

func newCompressionHandler(body string, contentType string) http.Handler {
	cfg := config.Compression{Enabled: true, Level: 6, MinSize: 1024, SkipPaths: []string{"/health"}}

	return middleware.Compression(cfg, logger.NewTestLogger(), metrics.NopClient{})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", contentType)
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, body)
		}),
	)
}

func decompress(t *testing.T, encoding string, body io.Reader) string {
	t.Helper()

	var reader io.Reader

	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(body)
		require.NoError(t, err)

		reader = gz
	case "deflate":
		reader = flate.NewReader(body)
	case "br":
		reader = brotli.NewReader(body)
	default:
		reader = body
	}

	plain, err := io.ReadAll(reader)
	require.NoError(t, err)

	return string(plain)
}

func TestCompression(t *testing.T) {
	t.Parallel()

	large := `{"status":"success","data":{"data":"` + strings.Repeat("The Forest Hiker ", 200) + `"}}`

	cases := []struct {
		name             string
		path             string
		acceptEncoding   string
		body             string
		contentType      string
		expectedEncoding string
	}{
		{
			name:             "gzip",
			path:             "/api/v1/tours",
			acceptEncoding:   "gzip",
			body:             large,
			contentType:      "application/json; charset=utf-8",
			expectedEncoding: "gzip",
		},
		{
			name:             "brotli preferred by quality",
			path:             "/api/v1/tours",
			acceptEncoding:   "gzip;q=0.5, br;q=0.9",
			body:             large,
			contentType:      "application/json",
			expectedEncoding: "br",
		},
		{
			name:             "gzip wins ties",
			path:             "/api/v1/tours",
			acceptEncoding:   "deflate, br, gzip",
			body:             large,
			contentType:      "application/json",
			expectedEncoding: "gzip",
		},
		{
			name:             "deflate",
			path:             "/api/v1/tours",
			acceptEncoding:   "deflate",
			body:             large,
			contentType:      "application/json",
			expectedEncoding: "deflate",
		},
		{
			name:           "below threshold",
			path:           "/api/v1/tours",
			acceptEncoding: "gzip",
			body:           `{"status":"success"}`,
			contentType:    "application/json",
		},
		{
			name:           "binary content",
			path:           "/img/tours/tour-1-cover.jpg",
			acceptEncoding: "gzip",
			body:           large,
			contentType:    "image/jpeg",
		},
		{
			name:           "skipped path",
			path:           "/health",
			acceptEncoding: "gzip",
			body:           large,
			contentType:    "application/json",
		},
		{
			name:        "no accept encoding",
			path:        "/api/v1/tours",
			body:        large,
			contentType: "application/json",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tc.acceptEncoding)
			}

			rec := httptest.NewRecorder()
			newCompressionHandler(tc.body, tc.contentType).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, tc.expectedEncoding, rec.Header().Get("Content-Encoding"))
			require.Equal(t, tc.body, decompress(t, tc.expectedEncoding, rec.Body))
		})
	}
}
