package commands

import (
	"context"

	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/pkg/decorator"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	CreateOneCommand[E model.Entity] struct {
		Entity E
	}

	UpdateOneCommand[E model.Entity] struct {
		ID    model.ID
		Patch model.Patch
	}

	DeleteOneCommand[E model.Entity] struct {
		ID model.ID
	}

	DeleteResult struct {
		Success bool
	}

	CreateOneCommandHandler[E model.Entity] = decorator.CommandHandler[CreateOneCommand[E], E]
	UpdateOneCommandHandler[E model.Entity] = decorator.CommandHandler[UpdateOneCommand[E], E]
	DeleteOneCommandHandler[E model.Entity] = decorator.CommandHandler[DeleteOneCommand[E], DeleteResult]

	createOneCommandHandler[E model.Entity] struct {
		service ports.ResourceService[E]
	}

	updateOneCommandHandler[E model.Entity] struct {
		service ports.ResourceService[E]
	}

	deleteOneCommandHandler[E model.Entity] struct {
		service ports.ResourceService[E]
	}
)

func NewCreateOneCommandHandler[E model.Entity](
	svc ports.ResourceService[E],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CreateOneCommandHandler[E] {
	return decorator.ApplyCommandDecorators[CreateOneCommand[E], E](
		createOneCommandHandler[E]{service: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h createOneCommandHandler[E]) Handle(ctx context.Context, cmd CreateOneCommand[E]) (E, error) {
	return h.service.CreateOne(ctx, cmd.Entity)
}

func NewUpdateOneCommandHandler[E model.Entity](
	svc ports.ResourceService[E],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) UpdateOneCommandHandler[E] {
	return decorator.ApplyCommandDecorators[UpdateOneCommand[E], E](
		updateOneCommandHandler[E]{service: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h updateOneCommandHandler[E]) Handle(ctx context.Context, cmd UpdateOneCommand[E]) (E, error) {
	return h.service.UpdateOne(ctx, cmd.ID, cmd.Patch)
}

func NewDeleteOneCommandHandler[E model.Entity](
	svc ports.ResourceService[E],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) DeleteOneCommandHandler[E] {
	return decorator.ApplyCommandDecorators[DeleteOneCommand[E], DeleteResult](
		deleteOneCommandHandler[E]{service: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h deleteOneCommandHandler[E]) Handle(ctx context.Context, cmd DeleteOneCommand[E]) (DeleteResult, error) {
	if err := h.service.DeleteOne(ctx, cmd.ID); err != nil {
		return DeleteResult{Success: false}, err
	}

	return DeleteResult{Success: true}, nil
}
