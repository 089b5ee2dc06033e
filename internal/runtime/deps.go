package runtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/throttled/throttled/v2"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/infrastructure"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/internal/usecases/queries"
	"github.com/architeacher/natours/pkg/circuitbreaker"
	"github.com/architeacher/natours/pkg/decorator"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
)

type (
	infrastructureDep struct {
		publicHttpServer *http.Server
		adminHttpServer  *http.Server
		mongoClient      *infrastructure.MongoClient
		cacheClient      *infrastructure.KeydbClient
		storeBreaker     *circuitbreaker.CircuitBreaker
		tokenManager     *infrastructure.TokenManager
		logger           logger.Logger
		metricsClient    metrics.Client
		tracerProvider   otelTrace.TracerProvider
	}

	repositories struct {
		secretsRepo     ports.SecretsRepository
		toursRepo       ports.TourRepository
		usersRepo       ports.UserRepository
		reviewsRepo     ports.ReviewRepository
		bookingsRepo    ports.BookingRepository
		idempotencyRepo ports.IdempotencyCache
		rateLimitStore  throttled.GCRAStoreCtx
	}

	queryCaches struct {
		stats decorator.Cache[queries.TourStatsQuery, []model.TourStats]
		plan  decorator.Cache[queries.MonthlyPlanQuery, []model.MonthlyPlan]

		// invalidators are notified after every write that changes a report.
		invalidators []ports.CacheInvalidator
	}

	servicesDep struct {
		tours    ports.ToursService
		users    ports.UsersService
		reviews  ports.ReviewsService
		bookings ports.BookingsService
		auth     ports.Authenticator
	}

	applications struct {
		webApp *usecases.WebApplication
	}

	dependencies struct {
		config       *config.ServiceConfig
		configLoader *config.Loader

		infra infrastructureDep

		repos repositories

		caches queryCaches

		services servicesDep

		apps applications

		pingers map[string]ports.DependencyPinger

		cleanupFuncs map[string]func(ctx context.Context) error
	}

	DependencyOption func(*dependencies) error
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*dependencies, error) {
	deps := &dependencies{
		pingers:      make(map[string]ports.DependencyPinger),
		cleanupFuncs: make(map[string]func(ctx context.Context) error),
	}

	allOpts := append(defaultOptions(ctx), opts...)

	for _, opt := range allOpts {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	return deps, nil
}
