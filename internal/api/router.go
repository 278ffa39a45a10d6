package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/rednet/account-service/docs"
	"github.com/rednet/account-service/internal/api/handler"
	"github.com/rednet/account-service/internal/api/metrics"
	"github.com/rednet/account-service/internal/api/middleware"
	"github.com/rednet/account-service/internal/core/ports"
	"github.com/rednet/account-service/internal/infrastructure/http/handlers"
)

const metricsSubsystem = "http"

// RouterDeps carries everything the router wires into handlers.
type RouterDeps struct {
	Accounts ports.AccountService
	// Readiness maps a dependency name (e.g. "mongodb", "redis") to its health check.
	Readiness map[string]handlers.Pinger
	Log       zerolog.Logger
	// Registry receives the HTTP and account metrics and is served on
	// /metrics. Nil means the default Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
		if err := metrics.Register(deps.Registry); err != nil {
			deps.Log.Error().Err(err).Msg("register account metrics")
		}
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: registerer,
	}))

	// --- Account routes ---
	accounts := handler.NewAccountHandler(deps.Accounts)
	g := e.Group("/accounts")
	g.POST("", accounts.Create)
	g.PUT("", accounts.Update)
	g.GET("/by-id", accounts.GetByID)
	g.DELETE("/by-id", accounts.DeleteByID)
	g.GET("/by-username", accounts.GetByUsername)
	g.HEAD("/by-username", accounts.ExistsByUsername)
	g.GET("/by-email", accounts.GetByEmail)
	g.HEAD("/by-email", accounts.ExistsByEmail)
	g.GET("/by-username-or-email", accounts.GetByUsernameOrEmail)
	g.GET("/unique-fields-occupancy", accounts.UniqueFieldsOccupancy)

	// --- Health checks ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
