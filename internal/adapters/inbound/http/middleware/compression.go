package middleware

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"go.opentelemetry.io/otel/attribute"

	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
)

const (
	encodingGzip     = "gzip"
	encodingBrotli   = "br"
	encodingDeflate  = "deflate"
	encodingIdentity = "identity"

	compressionAlgorithmKey  = "compression.algorithm"
	compressionSkipReasonKey = "compression.skip_reason"

	httpCompressionTotal           = "http_compression_total"
	httpCompressionOriginalBytes   = "http_compression_original_bytes"
	httpCompressionCompressedBytes = "http_compression_compressed_bytes"
	httpCompressionSkippedTotal    = "http_compression_skipped_total"

	skipReasonBelowMinSize    = "below_min_size"
	skipReasonNonCompressible = "non_compressible_type"
	skipReasonNoEncoding      = "no_accept_encoding"
	skipReasonSkippedPath     = "skipped_path"
)

// DefaultCompressibleTypes are the text based media types worth compressing.
var DefaultCompressibleTypes = []string{
	"application/json",
	"application/javascript",
	"application/xml",
	"text/html",
	"text/plain",
	"text/css",
	"text/javascript",
	"text/xml",
	"image/svg+xml",
}

// serverPreferenceOrder breaks ties between encodings the client rates equally.
var serverPreferenceOrder = []string{encodingGzip, encodingBrotli, encodingDeflate}

type (
	acceptEncoding struct {
		encoding string
		quality  float64
	}

	// encoderPools hands out writers preset to the configured level.
	encoderPools struct {
		gzip    sync.Pool
		deflate sync.Pool
		brotli  sync.Pool
	}
)

func newEncoderPools(level int) *encoderPools {
	return &encoderPools{
		gzip: sync.Pool{New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)

			return w
		}},
		deflate: sync.Pool{New: func() any {
			w, _ := flate.NewWriter(io.Discard, level)

			return w
		}},
		brotli: sync.Pool{New: func() any {
			// brotli levels run 0-11, scale the shared 1-9 setting onto them.
			return brotli.NewWriterLevel(io.Discard, level*brotli.BestCompression/gzip.BestCompression)
		}},
	}
}

// Compression encodes responses of at least cfg.MinSize bytes with the best encoding
// the client accepts. Small bodies, non text types and skipped paths go out as is.
func Compression(cfg config.Compression, log logger.Logger, metricsClient metrics.Client) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	contentTypes := cfg.ContentTypes
	if len(contentTypes) == 0 {
		contentTypes = DefaultCompressibleTypes
	}

	pools := newEncoderPools(cfg.Level)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if shouldSkipPath(r.URL.Path, cfg.SkipPaths) {
				recordCompressionSkipped(ctx, metricsClient, skipReasonSkippedPath)
				next.ServeHTTP(w, r)

				return
			}

			encoding := selectEncoding(parseAcceptEncoding(r.Header.Get("Accept-Encoding")))
			if encoding == "" || encoding == encodingIdentity {
				recordCompressionSkipped(ctx, metricsClient, skipReasonNoEncoding)
				next.ServeHTTP(w, r)

				return
			}

			w.Header().Add("Vary", "Accept-Encoding")

			cw := &compressResponseWriter{
				ResponseWriter: w,
				ctx:            ctx,
				encoding:       encoding,
				minSize:        cfg.MinSize,
				contentTypes:   contentTypes,
				pools:          pools,
				log:            log,
				metricsClient:  metricsClient,
				statusCode:     http.StatusOK,
			}

			defer func() { _ = cw.Close() }()

			next.ServeHTTP(cw, r)
		})
	}
}

func parseAcceptEncoding(header string) []acceptEncoding {
	var encodings []acceptEncoding

	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if name = strings.ToLower(strings.TrimSpace(name)); name == "" {
			continue
		}

		enc := acceptEncoding{encoding: name, quality: 1.0}

		if value, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if q, err := strconv.ParseFloat(value, 64); err == nil {
				enc.quality = q
			}
		}

		encodings = append(encodings, enc)
	}

	return encodings
}

// selectEncoding picks the highest rated supported encoding, using the server
// preference on ties. A positive wildcard selects the server's first choice.
func selectEncoding(encodings []acceptEncoding) string {
	best, bestQuality, bestPriority := "", 0.0, len(serverPreferenceOrder)

	for _, enc := range encodings {
		if enc.quality <= 0 {
			continue
		}

		if enc.encoding == "*" {
			if enc.quality > bestQuality {
				best, bestQuality, bestPriority = serverPreferenceOrder[0], enc.quality, 0
			}

			continue
		}

		priority := slices.Index(serverPreferenceOrder, enc.encoding)
		if priority < 0 {
			continue
		}

		if enc.quality > bestQuality || (enc.quality == bestQuality && priority < bestPriority) {
			best, bestQuality, bestPriority = enc.encoding, enc.quality, priority
		}
	}

	return best
}

func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	return false
}

// compressResponseWriter holds the status and the first bytes back until it knows
// whether the body is large enough to be worth encoding.
type compressResponseWriter struct {
	http.ResponseWriter

	ctx           context.Context
	encoding      string
	minSize       int
	contentTypes  []string
	pools         *encoderPools
	log           logger.Logger
	metricsClient metrics.Client

	statusCode    int
	headerPending bool
	headerSent    bool
	passthrough   bool
	buf           []byte
	writer        io.WriteCloser
	counter       *countingWriter
	originalSize  int
}

func (w *compressResponseWriter) WriteHeader(statusCode int) {
	if w.headerPending || w.headerSent {
		return
	}

	w.statusCode = statusCode

	if statusCode == http.StatusNoContent || statusCode == http.StatusNotModified || statusCode < http.StatusOK ||
		!w.isCompressible(w.Header().Get("Content-Type")) || w.Header().Get("Content-Encoding") != "" {
		w.passthrough = true
		w.sendHeader()

		return
	}

	w.headerPending = true
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	if !w.headerPending && !w.headerSent {
		w.WriteHeader(http.StatusOK)
	}

	w.originalSize += len(b)

	if w.passthrough {
		return w.ResponseWriter.Write(b)
	}

	if w.writer != nil {
		return w.writer.Write(b)
	}

	w.buf = append(w.buf, b...)
	if len(w.buf) >= w.minSize {
		if err := w.startEncoding(); err != nil {
			return 0, err
		}
	}

	return len(b), nil
}

func (w *compressResponseWriter) startEncoding() error {
	h := w.Header()
	h.Set("Content-Encoding", w.encoding)
	h.Del("Content-Length")

	if etag := h.Get("ETag"); etag != "" && !strings.HasPrefix(etag, "W/") {
		// the encoded representation is no longer byte identical
		h.Set("ETag", "W/"+etag)
	}

	w.sendHeader()

	w.counter = &countingWriter{Writer: w.ResponseWriter}

	switch w.encoding {
	case encodingGzip:
		gw, _ := w.pools.gzip.Get().(*gzip.Writer)
		gw.Reset(w.counter)
		w.writer = &pooledWriter[*gzip.Writer]{writer: gw, pool: &w.pools.gzip}
	case encodingDeflate:
		fw, _ := w.pools.deflate.Get().(*flate.Writer)
		fw.Reset(w.counter)
		w.writer = &pooledWriter[*flate.Writer]{writer: fw, pool: &w.pools.deflate}
	case encodingBrotli:
		bw, _ := w.pools.brotli.Get().(*brotli.Writer)
		bw.Reset(w.counter)
		w.writer = &pooledWriter[*brotli.Writer]{writer: bw, pool: &w.pools.brotli}
	}

	buffered := w.buf
	w.buf = nil

	_, err := w.writer.Write(buffered)

	return err
}

func (w *compressResponseWriter) sendHeader() {
	w.headerPending = false
	w.headerSent = true
	w.ResponseWriter.WriteHeader(w.statusCode)
}

func (w *compressResponseWriter) isCompressible(contentType string) bool {
	if contentType == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	for _, allowed := range w.contentTypes {
		if strings.EqualFold(allowed, mediaType) {
			return true
		}
	}

	return false
}

func (w *compressResponseWriter) Close() error {
	switch {
	case w.writer != nil:
		err := w.writer.Close()
		recordCompression(w.ctx, w.metricsClient, w.encoding, int64(w.originalSize), w.counter.written)

		w.log.Debug().
			Str("compression_algorithm", w.encoding).
			Int("original_size", w.originalSize).
			Int64("compressed_size", w.counter.written).
			Msg("response compressed")

		return err
	case w.passthrough:
		recordCompressionSkipped(w.ctx, w.metricsClient, skipReasonNonCompressible)
	case w.headerPending:
		w.sendHeader()

		if len(w.buf) > 0 {
			_, _ = w.ResponseWriter.Write(w.buf)
			w.buf = nil
		}

		recordCompressionSkipped(w.ctx, w.metricsClient, skipReasonBelowMinSize)
	}

	return nil
}

func (w *compressResponseWriter) Flush() {
	if w.headerPending {
		if err := w.startEncoding(); err != nil {
			return
		}
	}

	if flusher, ok := w.writer.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}

	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}

	return nil, nil, http.ErrNotSupported
}

type (
	encoder interface {
		io.WriteCloser
		Flush() error
	}

	// pooledWriter returns its encoder to the pool once closed.
	pooledWriter[E encoder] struct {
		writer E
		pool   *sync.Pool
	}

	countingWriter struct {
		io.Writer
		written int64
	}
)

func (p *pooledWriter[E]) Write(b []byte) (int, error) {
	return p.writer.Write(b)
}

func (p *pooledWriter[E]) Flush() error {
	return p.writer.Flush()
}

func (p *pooledWriter[E]) Close() error {
	err := p.writer.Close()
	p.pool.Put(p.writer)

	return err
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.Writer.Write(b)
	c.written += int64(n)

	return n, err
}

func recordCompressionSkipped(ctx context.Context, metricsClient metrics.Client, reason string) {
	metricsClient.Inc(ctx, httpCompressionSkippedTotal, int64(1), attribute.String(compressionSkipReasonKey, reason))
}

func recordCompression(ctx context.Context, metricsClient metrics.Client, algorithm string, originalSize, compressedSize int64) {
	attrs := []attribute.KeyValue{attribute.String(compressionAlgorithmKey, algorithm)}

	metricsClient.Inc(ctx, httpCompressionTotal, int64(1), attrs...)
	metricsClient.Inc(ctx, httpCompressionOriginalBytes, originalSize, attrs...)
	metricsClient.Inc(ctx, httpCompressionCompressedBytes, compressedSize, attrs...)
}
