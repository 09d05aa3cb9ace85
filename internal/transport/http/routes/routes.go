package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/telemetry"
	"github.com/Rethick-Jeganathan/Procura/internal/transport/http/handlers"
	"github.com/Rethick-Jeganathan/Procura/internal/transport/http/middleware"
	"github.com/Rethick-Jeganathan/Procura/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	PasswordReset *usecase.PasswordResetService
	Sync          *usecase.SyncService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Profiles    port.ProfileRepository
	Metrics     *telemetry.Metrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(httpMetrics.Handler())
	} else {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	}

	if len(deps.Config.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	checks := map[string]handlers.DependencyChecker{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}
	healthHandler := handlers.NewHealthHandler(deps.Services.Sync, checks)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authOpts := []handlers.AuthHandlerOption{
			handlers.WithRegistrationService(deps.Services.Registration),
		}
		if deps.Metrics != nil {
			authOpts = append(authOpts, handlers.WithLoginMetrics(deps.Metrics))
		}
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, authOpts...)
		authHandler.RegisterRoutes(authGroup,
			rateLimitChain(deps, "login", deps.Config.RateLimit.LoginMaxAttempts),
			rateLimitChain(deps, "signup", deps.Config.RateLimit.SignupMaxAttempt),
			authMiddleware,
		)

		passwordGroup := api.Group("/password")
		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		passwordHandler.RegisterRoutes(passwordGroup,
			rateLimitChain(deps, "password-reset", deps.Config.RateLimit.ResetMaxAttempts)...)

		profileGroup := api.Group("/profiles")
		profileGroup.Use(authMiddleware)
		profileHandler := handlers.NewProfileHandler(deps.Profiles)
		profileHandler.RegisterRoutes(profileGroup)

		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware, middleware.RequireRole(deps.Profiles, string(domain.RoleAdmin)))
		adminHandler := handlers.NewAdminHandler(deps.Services.Sync)
		adminHandler.RegisterRoutes(adminGroup, healthHandler)
	}

	return r
}

func rateLimitChain(deps Dependencies, rule string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}
	return []gin.HandlerFunc{
		deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:   rule,
			Limit:  limit,
			Window: deps.Config.RateLimit.WindowDuration,
		}),
	}
}
