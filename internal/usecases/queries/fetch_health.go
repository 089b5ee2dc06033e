package queries

import (
	"context"
	"time"

	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/pkg/decorator"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const defaultPingTimeout = 2 * time.Second

type (
	FetchHealthReportQuery struct{}

	FetchHealthReportQueryHandler = decorator.QueryHandler[FetchHealthReportQuery, *model.HealthReport]

	fetchHealthReportQueryHandler struct {
		pingers     map[string]ports.DependencyPinger
		pingTimeout time.Duration
		startTime   time.Time
	}
)

// NewFetchHealthReportQueryHandler pings every named dependency. The service is
// down when all of them fail and degraded when only some do.
func NewFetchHealthReportQueryHandler(
	pingers map[string]ports.DependencyPinger,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchHealthReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchHealthReportQuery, *model.HealthReport](
		fetchHealthReportQueryHandler{
			pingers:     pingers,
			pingTimeout: defaultPingTimeout,
			startTime:   time.Now(),
		},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h fetchHealthReportQueryHandler) Execute(ctx context.Context, _ FetchHealthReportQuery) (*model.HealthReport, error) {
	checks := make(map[string]model.DependencyCheck, len(h.pingers))

	down := 0
	for name, pinger := range h.pingers {
		check := h.ping(ctx, pinger)
		if check.Status == model.DependencyStatusDown {
			down++
		}

		checks[name] = check
	}

	status := model.HealthStatusOK
	switch {
	case down > 0 && down == len(checks):
		status = model.HealthStatusDown
	case down > 0:
		status = model.HealthStatusDegraded
	}

	return &model.HealthReport{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   config.ServiceVersion,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}, nil
}

func (h fetchHealthReportQueryHandler) ping(ctx context.Context, pinger ports.DependencyPinger) model.DependencyCheck {
	ctx, cancel := context.WithTimeout(ctx, h.pingTimeout)
	defer cancel()

	start := time.Now()
	err := pinger.Ping(ctx)
	latency := time.Since(start)

	check := model.DependencyCheck{
		Status:    model.DependencyStatusUp,
		LatencyMs: uint64(latency.Milliseconds()),
	}

	if err != nil {
		check.Status = model.DependencyStatusDown
		check.Message = err.Error()
	}

	return check
}
