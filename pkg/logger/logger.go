package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	JSONLoggingFormat = "json"

	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarn    = "warn"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
	LogLevelFatal   = "fatal"

	ContextKeyRequestID     contextKey = "requestID"
	ContextKeyCorrelationID contextKey = "correlationID"
	ContextKeyUserID        contextKey = "userID"
)

var levels = map[string]zerolog.Level{
	LogLevelDebug:   zerolog.DebugLevel,
	LogLevelInfo:    zerolog.InfoLevel,
	LogLevelWarn:    zerolog.WarnLevel,
	LogLevelWarning: zerolog.WarnLevel,
	LogLevelError:   zerolog.ErrorLevel,
	LogLevelFatal:   zerolog.FatalLevel,
}

// Logger wraps zerolog so callers depend on one concrete logging type.
type Logger struct {
	zerolog.Logger
}

func New(level, format string) Logger {
	return NewWithWriter(level, format, os.Stdout)
}

func NewWithWriter(level, format string, w io.Writer) Logger {
	logLevel, ok := levels[strings.ToLower(level)]
	if !ok {
		logLevel = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	if format == JSONLoggingFormat {
		out = w
	}

	return Logger{
		Logger: zerolog.New(out).Level(logLevel).With().Timestamp().Logger(),
	}
}

// Component returns a child logger tagged with the given component name.
func (l Logger) Component(name string) Logger {
	return Logger{Logger: l.With().Str("component", name).Logger()}
}

// WithContext enriches the logger with the request scoped identifiers found in ctx.
func (l Logger) WithContext(ctx context.Context) zerolog.Logger {
	fields := l.With()

	for key, name := range map[contextKey]string{
		ContextKeyCorrelationID: "correlation_id",
		ContextKeyRequestID:     "request_id",
		ContextKeyUserID:        "user_id",
	} {
		if value, ok := ctx.Value(key).(string); ok && value != "" {
			fields = fields.Str(name, value)
		}
	}

	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		fields = fields.
			Str("trace_id", spanCtx.TraceID().String()).
			Str("span_id", spanCtx.SpanID().String())
	}

	return fields.Logger()
}
