package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/infra/config"
	"github.com/arklim/confession-platform-api/internal/transport/http/handlers"
	"github.com/arklim/confession-platform-api/internal/transport/http/middleware"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
	Profiles     *usecase.ProfileService
	Confessions  *usecase.ConfessionService
	Contacts     *usecase.ContactService
	Sessions     *usecase.SessionService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
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
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	idleTTL := deps.Config.Session.IdleTTL
	if deps.Services.Sessions != nil && deps.Services.Sessions.IdleTTL() > 0 {
		idleTTL = deps.Services.Sessions.IdleTTL()
	}
	requireIdentity := middleware.RequireIdentity(deps.Services.Auth, deps.Config.Session.CookieName, idleTTL)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		notificationDispatcher := handlers.NewLoggingNotificationDispatcher(deps.Logger)

		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Sessions, deps.Config.Session)
		authHandler.RegisterRoutes(authGroup, requireIdentity, buildRateLimitMiddlewares(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts)...)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registrationHandler.RegisterRoutes(authGroup, buildRateLimitMiddlewares(deps, "auth_signup_ip", deps.Config.RateLimit.SignupMaxAttempts)...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords, notificationDispatcher, deps.Config.Reset, deps.Logger)

		passwordGroup := api.Group("/password")
		passwordGroup.PUT("/change", requireIdentity, passwordHandler.ChangePassword)

		resetMiddlewares := buildRateLimitMiddlewares(deps, "password_reset_ip", deps.Config.RateLimit.PasswordResetMaxAttempts)
		resetGroup := passwordGroup.Group("/reset")
		if len(resetMiddlewares) > 0 {
			resetGroup.Use(resetMiddlewares...)
		}
		resetGroup.POST("/request", passwordHandler.RequestReset)
		resetGroup.POST("/confirm/:token", passwordHandler.ConfirmReset)

		profileHandler := handlers.NewProfileHandler(deps.Services.Profiles)
		profileGroup := api.Group("/profile")
		profileGroup.Use(requireIdentity)
		profileHandler.RegisterRoutes(profileGroup)

		confessionHandler := handlers.NewConfessionHandler(deps.Services.Confessions)
		confessionGroup := api.Group("/confessions")
		confessionHandler.RegisterRoutes(confessionGroup, requireIdentity)

		contactHandler := handlers.NewContactHandler(deps.Services.Contacts)
		api.POST("/contact", contactHandler.Submit)
	}

	return r
}

func buildRateLimitMiddlewares(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
