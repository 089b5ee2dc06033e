package decorator_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/architeacher/natours/pkg/decorator"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
)

type (
	renameTourCommand struct {
		Name string
	}

	renameTourHandler struct {
		err error
	}
)

func (h renameTourHandler) Handle(_ context.Context, cmd renameTourCommand) (string, error) {
	return cmd.Name, h.err
}

func TestApplyCommandDecorators(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		err         error
		expectedLog string
	}{
		{name: "success is logged at debug", expectedLog: "command executed successfully"},
		{name: "failure is logged with the error", err: errors.New("boom"), expectedLog: "failed to execute command"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			handler := decorator.ApplyCommandDecorators[renameTourCommand, string](
				renameTourHandler{err: tc.err},
				logger.NewBufferedTestLogger(&buf),
				metrics.NopClient{},
				noop.NewTracerProvider(),
			)

			result, err := handler.Handle(context.Background(), renameTourCommand{Name: "The Forest Hiker"})
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
				require.Equal(t, "The Forest Hiker", result)
			}

			require.Contains(t, buf.String(), tc.expectedLog)
			require.Contains(t, buf.String(), `"command":"renameTourCommand"`)
		})
	}
}

func TestApplyQueryDecorators_RecordsMetrics(t *testing.T) {
	t.Parallel()

	client := metrics.NewOTELClient("decorator-test")

	handler := decorator.ApplyQueryDecorators[statsQuery, statsResult](
		&fakeQueryHandler{result: statsResult{Value: "ok"}},
		logger.NewTestLogger(),
		client,
		noop.NewTracerProvider(),
	)

	_, err := handler.Execute(context.Background(), statsQuery{Key: "stats"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	client.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Contains(t, rec.Body.String(), "queries.statsQuery.success")
	require.Contains(t, rec.Body.String(), "queries.statsQuery.duration")
}
