package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/natours/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/natours/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/natours/internal/usecases"
	"github.com/architeacher/natours/pkg/logger"
	"github.com/architeacher/natours/pkg/metrics"
)

type AdminRouterConfig struct {
	App           *usecases.WebApplication
	Logger        logger.Logger
	MetricsClient metrics.Client
}

// NewAdminRouter serves the operator endpoints. It is meant for an internal port only.
func NewAdminRouter(cfg AdminRouterConfig) http.Handler {
	log := cfg.Logger.Component("admin_http")
	errorWriter := shared.NewErrorWriter(log, false)

	router := chi.NewRouter()

	router.Use(middleware.RequestTracking())
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(log, errorWriter))

	health := handlers.NewHealthHandler(cfg.App, errorWriter)
	router.Get("/health", health.Health)
	router.Method(http.MethodGet, "/metrics", cfg.MetricsClient.Handler())

	return router
}
