package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/ankunstudio/backoffice/docs"
	"github.com/ankunstudio/backoffice/internal/api/handler"
	"github.com/ankunstudio/backoffice/internal/api/middleware"
	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/internal/core/ports"
)

// Deps carries everything the router wires into handlers. Limiter, Events,
// Mongo and Redis are optional.
type Deps struct {
	Service     ports.CredentialService
	Tokens      ports.TokenIssuer
	Limiter     ports.LoginLimiter
	Events      ports.AuthEventReader
	Mongo       *mongo.Database
	Redis       *redis.Client
	JWTSecret   string
	ExposeDebug bool
	Log         zerolog.Logger

	// Registerer receives the HTTP request metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	registerer := d.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "backoffice",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Service, d.Tokens, handler.AuthHandlerOptions{
		Limiter:     d.Limiter,
		ExposeDebug: d.ExposeDebug,
		Log:         d.Log,
	})
	adminHandler := handler.NewAdminHandler(d.Service, d.Events)
	authMiddleware := middleware.Auth(d.JWTSecret)
	managersOnly := middleware.RBAC(domain.RoleLabelManager, domain.RoleAdmin)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/register", authHandler.Register)
	e.GET("/auth/status", authHandler.Status)
	e.GET("/auth/me", authHandler.Me, authMiddleware)
	e.POST("/auth/probe", authHandler.Probe, authMiddleware, managersOnly)

	// --- Admin routes ---
	admin := e.Group("/admin", authMiddleware, managersOnly)
	admin.GET("/status", adminHandler.Status)
	admin.GET("/events", adminHandler.Events)
	admin.POST("/users", authHandler.CreateUser)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Service, d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
