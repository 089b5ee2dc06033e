package queries

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
	GetOneQuery[E model.Entity] struct {
		ID       model.ID
		Populate []string
	}

	// GetAllQuery lists documents matching Query. Scope is a predicate fixed by
	// the route, such as the tour of a nested reviews listing.
	GetAllQuery[E model.Entity] struct {
		Query model.QuerySpec
		Scope model.Specification
	}

	GetOneQueryHandler[E model.Entity] = decorator.QueryHandler[GetOneQuery[E], E]
	GetAllQueryHandler[E model.Entity] = decorator.QueryHandler[GetAllQuery[E], []E]

	getOneQueryHandler[E model.Entity] struct {
		service ports.ResourceService[E]
	}

	getAllQueryHandler[E model.Entity] struct {
		service ports.ResourceService[E]
	}
)

func NewGetOneQueryHandler[E model.Entity](
	svc ports.ResourceService[E],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetOneQueryHandler[E] {
	return decorator.ApplyQueryDecorators[GetOneQuery[E], E](
		getOneQueryHandler[E]{service: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h getOneQueryHandler[E]) Execute(ctx context.Context, query GetOneQuery[E]) (E, error) {
	return h.service.GetOne(ctx, query.ID, query.Populate...)
}

func NewGetAllQueryHandler[E model.Entity](
	svc ports.ResourceService[E],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetAllQueryHandler[E] {
	return decorator.ApplyQueryDecorators[GetAllQuery[E], []E](
		getAllQueryHandler[E]{service: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h getAllQueryHandler[E]) Execute(ctx context.Context, query GetAllQuery[E]) ([]E, error) {
	return h.service.GetAll(ctx, query.Query, query.Scope)
}
