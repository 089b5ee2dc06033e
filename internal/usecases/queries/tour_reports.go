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
	TourStatsQuery struct{}

	MonthlyPlanQuery struct {
		Year int `json:"year"`
	}

	ToursWithinQuery struct {
		Circle model.GeoCircle
	}

	DistancesQuery struct {
		Origin model.Point
		Unit   model.DistanceUnit
	}

	TourStatsQueryHandler   = decorator.QueryHandler[TourStatsQuery, []model.TourStats]
	MonthlyPlanQueryHandler = decorator.QueryHandler[MonthlyPlanQuery, []model.MonthlyPlan]
	ToursWithinQueryHandler = decorator.QueryHandler[ToursWithinQuery, []*model.Tour]
	DistancesQueryHandler   = decorator.QueryHandler[DistancesQuery, []model.TourDistance]

	tourStatsQueryHandler struct {
		toursService ports.ToursService
	}

	monthlyPlanQueryHandler struct {
		toursService ports.ToursService
	}

	toursWithinQueryHandler struct {
		toursService ports.ToursService
	}

	distancesQueryHandler struct {
		toursService ports.ToursService
	}
)

// NewTourStatsQueryHandler serves the stats from cache when one is given.
func NewTourStatsQueryHandler(
	svc ports.ToursService,
	cache decorator.Cache[TourStatsQuery, []model.TourStats],
	cacheConfig decorator.CacheConfig,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) TourStatsQueryHandler {
	var handler TourStatsQueryHandler = tourStatsQueryHandler{toursService: svc}
	if cache != nil {
		handler = decorator.NewQueryCachingDecorator(handler, cache, cacheConfig)
	}

	return decorator.ApplyQueryDecorators(handler, log, metricsClient, tracerProvider)
}

func (h tourStatsQueryHandler) Execute(ctx context.Context, _ TourStatsQuery) ([]model.TourStats, error) {
	return h.toursService.Stats(ctx)
}

func NewMonthlyPlanQueryHandler(
	svc ports.ToursService,
	cache decorator.Cache[MonthlyPlanQuery, []model.MonthlyPlan],
	cacheConfig decorator.CacheConfig,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) MonthlyPlanQueryHandler {
	var handler MonthlyPlanQueryHandler = monthlyPlanQueryHandler{toursService: svc}
	if cache != nil {
		handler = decorator.NewQueryCachingDecorator(handler, cache, cacheConfig)
	}

	return decorator.ApplyQueryDecorators(handler, log, metricsClient, tracerProvider)
}

func (h monthlyPlanQueryHandler) Execute(ctx context.Context, query MonthlyPlanQuery) ([]model.MonthlyPlan, error) {
	return h.toursService.MonthlyPlan(ctx, query.Year)
}

func NewToursWithinQueryHandler(
	svc ports.ToursService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) ToursWithinQueryHandler {
	return decorator.ApplyQueryDecorators[ToursWithinQuery, []*model.Tour](
		toursWithinQueryHandler{toursService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h toursWithinQueryHandler) Execute(ctx context.Context, query ToursWithinQuery) ([]*model.Tour, error) {
	return h.toursService.ToursWithin(ctx, query.Circle)
}

func NewDistancesQueryHandler(
	svc ports.ToursService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) DistancesQueryHandler {
	return decorator.ApplyQueryDecorators[DistancesQuery, []model.TourDistance](
		distancesQueryHandler{toursService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h distancesQueryHandler) Execute(ctx context.Context, query DistancesQuery) ([]model.TourDistance, error) {
	return h.toursService.Distances(ctx, query.Origin, query.Unit)
}
