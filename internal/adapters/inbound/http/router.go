package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/throttled/throttled/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/internal/domain/model"
	"github.com/architeacher/natours/internal/ports"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
)

const baseURL = "/api/v1"

// RouterConfig carries the dependencies of the public router. A nil RateLimitStore or
// IdempotencyCache turns the matching middleware off.
type RouterConfig struct {
	App              *usecases.WebApplication
	Authenticator    ports.Authenticator
	RateLimitStore   throttled.GCRAStoreCtx
	IdempotencyCache ports.IdempotencyCache
	Logger           logger.Logger
	MetricsClient    metrics.Client
	TracerProvider   otelTrace.TracerProvider
	Config           *config.ServiceConfig
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	log := cfg.Logger.Component("http")
	errorWriter := shared.NewErrorWriter(log, !cfg.Config.IsProduction())

	router := chi.NewRouter()

	router.Use(middleware.RequestTracking())
	router.Use(chimiddleware.RealIP)

	if cfg.Config.Logging.AccessLog.Enabled {
		router.Use(middleware.HealthCheckFilter(cfg.Config.Logging.AccessLog.LogHealthChecks))
		router.Use(middleware.AccessLogger(cfg.Logger, cfg.Config.Logging.AccessLog.IncludeQueryParams))
	}

	if cfg.Config.Telemetry.Metrics.Enabled {
		router.Use(middleware.Metrics(cfg.MetricsClient))
	}

	if cfg.Config.Telemetry.Traces.Enabled {
		router.Use(otelhttp.NewMiddleware(cfg.Config.App.ServiceName,
			otelhttp.WithTracerProvider(cfg.TracerProvider),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		))
	}

	router.Use(middleware.Recovery(log, errorWriter))
	router.Use(middleware.SecurityHeaders(cfg.Config.App.APIVersion, cfg.Config.IsProduction()))
	router.Use(middleware.CORS(cfg.Config.Security.AllowedOrigins))

	if cfg.Config.ThrottledRateLimiting.Enabled && cfg.RateLimitStore != nil {
		rateLimiter, err := middleware.ThrottledRateLimiting(cfg.Config.ThrottledRateLimiting, cfg.RateLimitStore, errorWriter, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}

		router.Use(rateLimiter)
	}

	router.Use(middleware.Compression(cfg.Config.Compression, log, cfg.MetricsClient))
	router.Use(chimiddleware.Timeout(cfg.Config.PublicHTTPServer.WriteTimeout))
	router.Use(middleware.BodyLimit(cfg.Config.Security.BodyLimit, errorWriter))
	router.Use(middleware.Sanitize())
	router.Use(middleware.ParameterPollution(cfg.Config.Security.ParameterWhitelist))
	router.Use(middleware.ConditionalGET())

	if cfg.IdempotencyCache != nil {
		router.Use(middleware.Idempotency(cfg.IdempotencyCache, cfg.Config.Idempotency, cfg.Config.Auth.CookieName, errorWriter, log))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorWriter.WriteStatus(w, r, http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorWriter.WriteStatus(w, r, http.StatusMethodNotAllowed,
			fmt.Sprintf("Method %s is not allowed on %s.", r.Method, r.URL.Path))
	})

	health := handlers.NewHealthHandler(cfg.App, errorWriter)
	router.Get("/health", health.Health)

	router.Route(baseURL, func(r chi.Router) {
		r.Get("/health", health.Health)

		mountAPIRoutes(r, cfg.App, cfg.Authenticator, cfg.Config.Auth.CookieName, errorWriter)
	})

	return router, nil
}

func mountAPIRoutes(
	r chi.Router,
	app *usecases.WebApplication,
	authenticator ports.Authenticator,
	cookieName string,
	errorWriter shared.ErrorWriter,
) {
	protect := middleware.Protect(authenticator, cookieName, errorWriter)
	restrictTo := func(roles ...model.Role) func(http.Handler) http.Handler {
		return middleware.RestrictTo(errorWriter, roles...)
	}

	tours := handlers.NewResourceHandler[model.Tour](app.Commands.Tours, app.Queries.Tours, errorWriter,
		handlers.ResourceOptions[*model.Tour]{
			IDParam:  handlers.ParamTourID,
			Populate: []string{model.PopulateGuides, model.PopulateReviews},
		})
	reports := handlers.NewTourReportsHandler(app, errorWriter)
	users := handlers.NewResourceHandler[model.User](app.Commands.Users, app.Queries.Users, errorWriter,
		handlers.ResourceOptions[*model.User]{})
	account := handlers.NewAccountHandler(app, users, errorWriter)
	reviews := handlers.NewResourceHandler[model.Review](app.Commands.Reviews, app.Queries.Reviews, errorWriter,
		handlers.NestedReviewOptions(model.PopulateUser))
	bookings := handlers.NewResourceHandler[model.Booking](app.Commands.Bookings, app.Queries.Bookings, errorWriter,
		handlers.ResourceOptions[*model.Booking]{Populate: []string{model.PopulateTour, model.PopulateUser}})
	booking := handlers.NewBookingHandler(app, errorWriter)

	reviewRoutes := func(r chi.Router) {
		r.Get("/", reviews.List)
		r.With(protect, restrictTo(model.RoleUser)).Post("/", reviews.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", reviews.Get)
			r.Patch("/", reviews.Update)
			r.Delete("/", reviews.Delete)
		})
	}

	r.Route("/tours", func(r chi.Router) {
		r.Get("/", tours.List)
		r.Post("/", tours.Create)
		r.With(handlers.AliasTopTours).Get("/top5", tours.List)
		r.Get("/stats", reports.Stats)
		r.Get("/plan/{year}", reports.MonthlyPlan)
		r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", reports.ToursWithin)
		r.Get("/distances/{latlng}/unit/{unit}", reports.Distances)

		r.Route("/{tourId}", func(r chi.Router) {
			r.Get("/", tours.Get)
			r.Patch("/", tours.Update)
			r.With(protect, restrictTo(model.RoleAdmin, model.RoleLeadGuide)).Delete("/", tours.Delete)
			r.Route("/reviews", reviewRoutes)
		})
	})

	r.Route("/reviews", reviewRoutes)

	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.Get("/me", account.Me)
			r.Patch("/updateme", account.UpdateMe)
			r.Delete("/deleteme", account.DeleteMe)
		})

		r.Get("/", users.List)
		r.Post("/", users.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", users.Get)
			r.Patch("/", users.Update)
			r.Delete("/", users.Delete)
		})
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Use(protect)

		r.Get("/", bookings.List)
		r.With(restrictTo(model.RoleAdmin, model.RoleLeadGuide)).Post("/", bookings.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Post("/", booking.BookTour)

			r.Group(func(r chi.Router) {
				r.Use(restrictTo(model.RoleAdmin, model.RoleLeadGuide))
				r.Get("/", bookings.Get)
				r.Patch("/", bookings.Update)
				r.Delete("/", bookings.Delete)
			})
		})
	})
}
