package decorator

import (
	"context"
	"fmt"
	"time"

	"github.com/architeacher/natours/pkg/metrics"
)

type (
	commandMetricsDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		client metrics.Client
	}

	queryMetricsDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		client metrics.Client
	}
)

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	start := time.Now()
	action := generateActionName(cmd)

	defer func() {
		record(ctx, d.client, "commands", action, start, err)
	}()

	return d.base.Handle(ctx, cmd)
}

func (d queryMetricsDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	start := time.Now()
	action := generateActionName(query)

	defer func() {
		record(ctx, d.client, "queries", action, start, err)
	}()

	return d.base.Execute(ctx, query)
}

func record(ctx context.Context, client metrics.Client, kind, action string, start time.Time, err error) {
	client.Inc(ctx, fmt.Sprintf("%s.%s.duration", kind, action), time.Since(start).Seconds())

	if err != nil {
		client.Inc(ctx, fmt.Sprintf("%s.%s.failure", kind, action), 1)

		return
	}

	client.Inc(ctx, fmt.Sprintf("%s.%s.success", kind, action), 1)
}
