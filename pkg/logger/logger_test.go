package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/pkg/logger"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		level         string
		expectedLevel zerolog.Level
	}{
		{name: "debug level", level: logger.LogLevelDebug, expectedLevel: zerolog.DebugLevel},
		{name: "warning alias", level: logger.LogLevelWarning, expectedLevel: zerolog.WarnLevel},
		{name: "upper case level", level: "ERROR", expectedLevel: zerolog.ErrorLevel},
		{name: "unknown falls back to info", level: "verbose", expectedLevel: zerolog.InfoLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log := logger.NewWithWriter(tc.level, logger.JSONLoggingFormat, &buf)

			require.Equal(t, tc.expectedLevel, log.GetLevel())
		})
	}
}

func TestComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithWriter(logger.LogLevelInfo, logger.JSONLoggingFormat, &buf).Component("tours")

	log.Info().Msg("listing")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "tours", entry["component"])
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		ctx      func() context.Context
		expected map[string]string
		absent   []string
	}{
		{
			name: "adds request scoped identifiers",
			ctx: func() context.Context {
				ctx := context.WithValue(context.Background(), logger.ContextKeyRequestID, "req-1")
				ctx = context.WithValue(ctx, logger.ContextKeyCorrelationID, "corr-1")

				return context.WithValue(ctx, logger.ContextKeyUserID, "user-1")
			},
			expected: map[string]string{"request_id": "req-1", "correlation_id": "corr-1", "user_id": "user-1"},
		},
		{
			name:   "empty context adds nothing",
			ctx:    context.Background,
			absent: []string{"request_id", "correlation_id", "user_id", "trace_id"},
		},
		{
			name: "skips empty values",
			ctx: func() context.Context {
				return context.WithValue(context.Background(), logger.ContextKeyRequestID, "")
			},
			absent: []string{"request_id"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log := logger.NewWithWriter(logger.LogLevelInfo, logger.JSONLoggingFormat, &buf)

			ctxLogger := log.WithContext(tc.ctx())
			ctxLogger.Info().Msg("test message")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			for key, value := range tc.expected {
				require.Equal(t, value, entry[key])
			}

			for _, key := range tc.absent {
				require.NotContains(t, entry, key)
			}
		})
	}
}
