package api

import (
	"context"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/pm-health/patient-service/docs"
	"github.com/pm-health/patient-service/internal/api/handler"
	"github.com/pm-health/patient-service/internal/api/middleware"
	"github.com/pm-health/patient-service/internal/core/ports"
	"github.com/pm-health/patient-service/internal/core/service"
	mongodb "github.com/pm-health/patient-service/internal/infrastructure/db/mongo"
)

// Deps carries the externally constructed collaborators the router wires into
// handlers. Repositories and services are built here; connections and remote
// clients are owned by main.
type Deps struct {
	Mongo      *mongo.Database
	Redis      *redis.Client
	Billing    ports.BillingClient
	Publisher  ports.EventPublisher
	Provisions ports.ProvisionStore
	JWTSecret  string
	Logger     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("patient"))

	// --- Services ---
	patientRepo := mongodb.NewPatientRepository(deps.Mongo)
	patientService := service.NewPatientService(patientRepo, deps.Billing, deps.Publisher, deps.Provisions, deps.Logger)
	patientHandler := handler.NewPatientHandler(patientService)

	authRepo := mongodb.NewAuthRepository(deps.Mongo)
	authService := service.NewAuthService(authRepo, deps.JWTSecret, 24*time.Hour)
	authHandler := handler.NewAuthHandler(authService)

	auth := middleware.Auth(deps.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Patient routes ---
	v1 := e.Group("/v1", auth)
	v1.GET("/patients", patientHandler.List)
	v1.POST("/patients", patientHandler.Create)
	v1.PUT("/patients/:id", patientHandler.Update)
	v1.DELETE("/patients/:id", patientHandler.Delete)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readiness := handler.NewReadinessHandler(deps.Mongo, deps.Redis, brokerPinger(deps.Publisher))

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readiness.Readiness)

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// brokerPinger narrows the publisher to the readiness probe's view. Stubbed
// publishers in tests often do not implement Ping; treat that as healthy.
func brokerPinger(p ports.EventPublisher) handler.BrokerPinger {
	if bp, ok := p.(handler.BrokerPinger); ok {
		return bp
	}
	return noopPinger{}
}

type noopPinger struct{}

func (noopPinger) Ping(context.Context) error { return nil }
