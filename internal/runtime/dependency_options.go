package runtime

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/vault/api"
	"github.com/throttled/throttled/v2/store/memstore"

	inboundhttp "github.com/architeacher/natours/internal/adapters/inbound/http"
	"github.com/architeacher/natours/internal/adapters/repos"
	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/infrastructure"
	"github.com/architeacher/natours/internal/services"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/internal/usecases/queries"
	"github.com/architeacher/natours/pkg/circuitbreaker"
	"github.com/architeacher/natours/pkg/decorator"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
)

// memoryRateLimitKeys bounds the in-process rate limit store used without a cache.
const memoryRateLimitKeys = 65536

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithLogger(),
		WithSecretsRepository(),
		WithConfigLoader(ctx),
		WithTracing(ctx),
		WithMetrics(),
		WithDatabase(ctx),
		WithCache(),
		WithCircuitBreaker(),
		WithRepositories(),
		WithQueryCaches(),
		WithServices(),
		WithAuthentication(),
		WithApplication(),
		WithHTTPServers(),
	}
}

func WithConfig() DependencyOption {
	return func(d *dependencies) error {
		cfg, err := config.Init()
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}

		d.config = cfg

		return nil
	}
}

func WithLogger() DependencyOption {
	return func(d *dependencies) error {
		d.infra.logger = logger.New(d.config.Logging.Level, d.config.Logging.Format)

		return nil
	}
}

func WithSecretsRepository() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SecretsStorage.Enabled {
			return nil
		}

		vaultConfig := api.DefaultConfig()
		vaultConfig.Address = d.config.SecretsStorage.Address
		vaultConfig.Timeout = d.config.SecretsStorage.Timeout
		vaultConfig.MaxRetries = int(d.config.SecretsStorage.MaxRetries)

		if d.config.SecretsStorage.TLSSkipVerify {
			vaultConfig.HttpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for local vault
			}
		}

		client, err := api.NewClient(vaultConfig)
		if err != nil {
			return fmt.Errorf("creating Vault client: %w", err)
		}

		if d.config.SecretsStorage.Namespace != "" {
			client.SetNamespace(d.config.SecretsStorage.Namespace)
		}

		d.repos.secretsRepo = repos.NewVaultRepository(client)

		return nil
	}
}

// WithConfigLoader overlays the Vault secrets and validates the resulting configuration.
func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if d.repos.secretsRepo != nil {
			loader := config.NewLoader(d.config, d.repos.secretsRepo, 0)

			version, err := loader.Load(ctx, d.config)
			if err != nil && !errors.Is(err, config.ErrSecretsDisabled) {
				return fmt.Errorf("loading secrets from Vault: %w", err)
			}

			d.configLoader = config.NewLoader(d.config, d.repos.secretsRepo, version)
		}

		if err := d.config.Validate(); err != nil {
			return fmt.Errorf("validating configuration: %w", err)
		}

		return nil
	}
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Enabled || !d.config.Telemetry.Traces.Enabled {
			d.infra.tracerProvider = infrastructure.NewNoopTracerProvider()

			return nil
		}

		tp, shutdown, err := infrastructure.NewTracerProvider(ctx, d.config.App, d.config.Telemetry)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}

		d.infra.tracerProvider = tp
		d.cleanupFuncs["tracer"] = shutdown

		return nil
	}
}

func WithMetrics() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Metrics.Enabled {
			d.infra.metricsClient = metrics.NopClient{}

			return nil
		}

		client := metrics.NewOTELClient(d.config.App.ServiceName)

		d.infra.metricsClient = client
		d.cleanupFuncs["metrics"] = client.Shutdown

		return nil
	}
}

func WithDatabase(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		client, err := infrastructure.NewMongoClient(ctx, d.config.Database, d.config.Backoff, d.infra.logger)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}

		if d.config.Database.EnsureIndexes {
			if err := repos.EnsureIndexes(ctx, client.Database()); err != nil {
				return fmt.Errorf("creating indexes: %w", err)
			}
		}

		d.infra.mongoClient = client
		d.pingers["database"] = client
		d.cleanupFuncs["database"] = client.Close

		return nil
	}
}

// WithCache connects KeyDB. Without it rate limiting falls back to process memory and
// idempotency and query caching are off.
func WithCache() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Cache.Enabled {
			store, err := memstore.NewCtx(memoryRateLimitKeys)
			if err != nil {
				return fmt.Errorf("creating in-memory rate limit store: %w", err)
			}

			d.repos.rateLimitStore = store

			return nil
		}

		client := infrastructure.NewKeyDBClient(d.config.Cache, d.infra.logger)

		d.infra.cacheClient = client
		d.repos.rateLimitStore = repos.NewRateLimitStore(client)
		d.pingers["cache"] = client
		d.cleanupFuncs["cache"] = func(context.Context) error {
			return client.Close()
		}

		if d.config.Idempotency.Enabled {
			d.repos.idempotencyRepo = repos.NewIdempotencyRepository(client)
		}

		return nil
	}
}

func WithCircuitBreaker() DependencyOption {
	return func(d *dependencies) error {
		cfg := d.config.CircuitBreaker
		log := d.infra.logger.Component("circuit_breaker")

		d.infra.storeBreaker = circuitbreaker.New(circuitbreaker.Config{
			Name:             "mongodb",
			Enabled:          cfg.Enabled,
			MaxRequests:      cfg.MaxRequests,
			Interval:         cfg.Interval,
			Timeout:          cfg.Timeout,
			FailureThreshold: cfg.FailureThreshold,
			IsSuccessful:     repos.IsStoreSuccess,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		})

		return nil
	}
}

func WithRepositories() DependencyOption {
	return func(d *dependencies) error {
		db := d.infra.mongoClient.Database()

		d.repos.toursRepo = repos.NewToursRepository(db, d.infra.storeBreaker, d.infra.logger)
		d.repos.usersRepo = repos.NewUsersRepository(db, d.infra.storeBreaker, d.infra.logger)
		d.repos.reviewsRepo = repos.NewReviewsRepository(db, d.infra.storeBreaker, d.infra.logger)
		d.repos.bookingsRepo = repos.NewBookingsRepository(db, d.infra.storeBreaker, d.infra.logger)

		return nil
	}
}

func WithQueryCaches() DependencyOption {
	return func(d *dependencies) error {
		if d.infra.cacheClient == nil || !d.config.QueryCache.Enabled {
			return nil
		}

		stats := repos.NewQueryCache[queries.TourStatsQuery, []model.TourStats](
			d.infra.cacheClient, repos.StatsCacheNamespace, d.infra.logger)
		plan := repos.NewQueryCache[queries.MonthlyPlanQuery, []model.MonthlyPlan](
			d.infra.cacheClient, repos.PlanCacheNamespace, d.infra.logger)

		d.caches.stats = stats
		d.caches.plan = plan
		d.caches.invalidators = append(d.caches.invalidators, stats, plan)

		return nil
	}
}

func WithServices() DependencyOption {
	return func(d *dependencies) error {
		maxLimit := d.config.Query.MaxLimit

		d.services.tours = services.NewToursService(d.repos.toursRepo, maxLimit, d.infra.logger, d.caches.invalidators...)
		d.services.users = services.NewUsersService(d.repos.usersRepo, maxLimit)
		d.services.reviews = services.NewReviewsService(
			d.repos.reviewsRepo, d.repos.toursRepo, maxLimit, d.infra.logger, d.caches.invalidators...)
		d.services.bookings = services.NewBookingsService(d.repos.bookingsRepo, d.repos.toursRepo, maxLimit)

		return nil
	}
}

func WithAuthentication() DependencyOption {
	return func(d *dependencies) error {
		d.infra.tokenManager = infrastructure.NewTokenManager(d.config.Auth)
		d.services.auth = services.NewAuthService(d.infra.tokenManager, d.repos.usersRepo)

		return nil
	}
}

func WithApplication() DependencyOption {
	return func(d *dependencies) error {
		d.apps.webApp = usecases.NewWebApplication(
			usecases.Services{
				Tours:    d.services.tours,
				Users:    d.services.users,
				Reviews:  d.services.reviews,
				Bookings: d.services.bookings,
			},
			usecases.ReportCaches{
				Stats:       d.caches.stats,
				StatsConfig: decorator.CacheConfig{Enabled: d.caches.stats != nil, TTL: d.config.QueryCache.StatsTTL},
				Plan:        d.caches.plan,
				PlanConfig:  decorator.CacheConfig{Enabled: d.caches.plan != nil, TTL: d.config.QueryCache.PlanTTL},
			},
			d.pingers,
			d.infra.logger,
			d.infra.metricsClient,
			d.infra.tracerProvider,
		)

		return nil
	}
}

func WithHTTPServers() DependencyOption {
	return func(d *dependencies) error {
		router, err := inboundhttp.NewRouter(inboundhttp.RouterConfig{
			App:              d.apps.webApp,
			Authenticator:    d.services.auth,
			RateLimitStore:   d.repos.rateLimitStore,
			IdempotencyCache: d.repos.idempotencyRepo,
			Logger:           d.infra.logger,
			MetricsClient:    d.infra.metricsClient,
			TracerProvider:   d.infra.tracerProvider,
			Config:           d.config,
		})
		if err != nil {
			return fmt.Errorf("creating router: %w", err)
		}

		public := d.config.PublicHTTPServer
		d.infra.publicHttpServer = &http.Server{
			Handler:      router,
			ReadTimeout:  public.ReadTimeout,
			WriteTimeout: public.WriteTimeout,
			IdleTimeout:  public.IdleTimeout,
		}

		if !d.config.AdminHTTPServer.Enabled {
			return nil
		}

		admin := d.config.AdminHTTPServer
		d.infra.adminHttpServer = &http.Server{
			Handler: inboundhttp.NewAdminRouter(inboundhttp.AdminRouterConfig{
				App:           d.apps.webApp,
				Logger:        d.infra.logger,
				MetricsClient: d.infra.metricsClient,
			}),
			ReadTimeout:  admin.ReadTimeout,
			WriteTimeout: admin.WriteTimeout,
			IdleTimeout:  admin.IdleTimeout,
		}

		return nil
	}
}
