package decorator

import (
	"context"
	"fmt"
	"strings"

	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Command any

	CommandHandler[C Command, R any] interface {
		Handle(context.Context, C) (R, error)
	}
)

func ApplyCommandDecorators[C Command, R any](
	handler CommandHandler[C, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CommandHandler[C, R] {
	return commandLoggingDecorator[C, R]{
		base: commandMetricsDecorator[C, R]{
			base: commandTracingDecorator[C, R]{
				base:           handler,
				tracerProvider: tracerProvider,
			},
			client: metricsClient,
		},
		logger: log,
	}
}

// generateActionName derives a short name from the dynamic type of v.
// Generic instantiations keep their type argument as a suffix, so
// "commands.CreateOneCommand[*model.Tour]" becomes "CreateOneCommand.tour".
func generateActionName(v any) string {
	name, param, generic := strings.Cut(fmt.Sprintf("%T", v), "[")

	name = strings.TrimLeft(name[strings.LastIndex(name, ".")+1:], "*")
	if !generic {
		return name
	}

	param = strings.TrimSuffix(param, "]")

	return name + "." + strings.ToLower(param[strings.LastIndex(param, ".")+1:])
}
