package usecases

import (
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/internal/usecases/commands"
	"github.com/architeacher/natours/internal/usecases/queries"
	"github.com/architeacher/natours/pkg/decorator"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	// ResourceCommands are the writes every resource exposes.
	ResourceCommands[E model.Entity] struct {
		CreateOne commands.CreateOneCommandHandler[E]
		UpdateOne commands.UpdateOneCommandHandler[E]
		DeleteOne commands.DeleteOneCommandHandler[E]
	}

	ResourceQueries[E model.Entity] struct {
		GetOne queries.GetOneQueryHandler[E]
		GetAll queries.GetAllQueryHandler[E]
	}

	Commands struct {
		Tours    ResourceCommands[*model.Tour]
		Users    ResourceCommands[*model.User]
		Reviews  ResourceCommands[*model.Review]
		Bookings ResourceCommands[*model.Booking]

		UpdateMe     commands.UpdateMeCommandHandler
		DeactivateMe commands.DeactivateMeCommandHandler
		BookTour     commands.BookTourCommandHandler
	}

	Queries struct {
		Tours    ResourceQueries[*model.Tour]
		Users    ResourceQueries[*model.User]
		Reviews  ResourceQueries[*model.Review]
		Bookings ResourceQueries[*model.Booking]

		TourStats         queries.TourStatsQueryHandler
		MonthlyPlan       queries.MonthlyPlanQueryHandler
		ToursWithin       queries.ToursWithinQueryHandler
		Distances         queries.DistancesQueryHandler
		FetchHealthReport queries.FetchHealthReportQueryHandler
	}

	// Services groups the domain services the handlers run on.
	Services struct {
		Tours    ports.ToursService
		Users    ports.UsersService
		Reviews  ports.ReviewsService
		Bookings ports.BookingsService
	}

	// ReportCaches holds the optional caches of the tour reports. Nil fields disable caching.
	ReportCaches struct {
		Stats       decorator.Cache[queries.TourStatsQuery, []model.TourStats]
		StatsConfig decorator.CacheConfig
		Plan        decorator.Cache[queries.MonthlyPlanQuery, []model.MonthlyPlan]
		PlanConfig  decorator.CacheConfig
	}

	WebApplication struct {
		Commands Commands
		Queries  Queries
	}
)

func NewWebApplication(
	services Services,
	caches ReportCaches,
	pingers map[string]ports.DependencyPinger,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) *WebApplication {
	return &WebApplication{
		Commands: Commands{
			Tours:    newResourceCommands[*model.Tour](services.Tours, log, metricsClient, tracerProvider),
			Users:    newResourceCommands[*model.User](services.Users, log, metricsClient, tracerProvider),
			Reviews:  newResourceCommands[*model.Review](services.Reviews, log, metricsClient, tracerProvider),
			Bookings: newResourceCommands[*model.Booking](services.Bookings, log, metricsClient, tracerProvider),

			UpdateMe:     commands.NewUpdateMeCommandHandler(services.Users, log, metricsClient, tracerProvider),
			DeactivateMe: commands.NewDeactivateMeCommandHandler(services.Users, log, metricsClient, tracerProvider),
			BookTour:     commands.NewBookTourCommandHandler(services.Bookings, log, metricsClient, tracerProvider),
		},
		Queries: Queries{
			Tours:    newResourceQueries[*model.Tour](services.Tours, log, metricsClient, tracerProvider),
			Users:    newResourceQueries[*model.User](services.Users, log, metricsClient, tracerProvider),
			Reviews:  newResourceQueries[*model.Review](services.Reviews, log, metricsClient, tracerProvider),
			Bookings: newResourceQueries[*model.Booking](services.Bookings, log, metricsClient, tracerProvider),

			TourStats: queries.NewTourStatsQueryHandler(
				services.Tours, caches.Stats, caches.StatsConfig, log, metricsClient, tracerProvider,
			),
			MonthlyPlan: queries.NewMonthlyPlanQueryHandler(
				services.Tours, caches.Plan, caches.PlanConfig, log, metricsClient, tracerProvider,
			),
			ToursWithin:       queries.NewToursWithinQueryHandler(services.Tours, log, metricsClient, tracerProvider),
			Distances:         queries.NewDistancesQueryHandler(services.Tours, log, metricsClient, tracerProvider),
			FetchHealthReport: queries.NewFetchHealthReportQueryHandler(pingers, log, metricsClient, tracerProvider),
		},
	}
}

func newResourceCommands[E model.Entity](
	svc ports.ResourceService[E],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) ResourceCommands[E] {
	return ResourceCommands[E]{
		CreateOne: commands.NewCreateOneCommandHandler(svc, log, metricsClient, tracerProvider),
		UpdateOne: commands.NewUpdateOneCommandHandler(svc, log, metricsClient, tracerProvider),
		DeleteOne: commands.NewDeleteOneCommandHandler(svc, log, metricsClient, tracerProvider),
	}
}

func newResourceQueries[E model.Entity](
	svc ports.ResourceService[E],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) ResourceQueries[E] {
	return ResourceQueries[E]{
		GetOne: queries.NewGetOneQueryHandler(svc, log, metricsClient, tracerProvider),
		GetAll: queries.NewGetAllQueryHandler(svc, log, metricsClient, tracerProvider),
	}
}
