package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/infra/config"
	"github.com/arklim/confession-platform-api/internal/infra/database"
	kafkainfra "github.com/arklim/confession-platform-api/internal/infra/kafka"
	"github.com/arklim/confession-platform-api/internal/infra/logger"
	redisinfra "github.com/arklim/confession-platform-api/internal/infra/redis"
	"github.com/arklim/confession-platform-api/internal/infra/security"
	"github.com/arklim/confession-platform-api/internal/infra/telemetry"
	postgresrepo "github.com/arklim/confession-platform-api/internal/repository/postgres"
	redisrepo "github.com/arklim/confession-platform-api/internal/repository/redis"
	"github.com/arklim/confession-platform-api/internal/transport/http/middleware"
	"github.com/arklim/confession-platform-api/internal/transport/http/routes"
	"github.com/arklim/confession-platform-api/internal/usecase"
)

const shutdownGrace = 10 * time.Second

// Application owns every process-wide resource and releases them in reverse
// acquisition order when Run returns.
type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	closers []func()
}

// onClose registers a cleanup to run when the application stops. Cleanups run
// last registered first.
func (a *Application) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New wires configuration into the full service graph: infrastructure
// clients, repositories, use cases, and the HTTP engine. On any error the
// already acquired resources are released before returning.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	a.onClose(func() { _ = log.Sync() })

	fail := func(err error) (*Application, error) {
		a.close()
		return nil, err
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("init telemetry: %w", err))
	}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("tracing disabled, OTLP exporter init failed", zap.Error(err))
		} else {
			a.onClose(func() { _ = tracer.Shutdown(context.Background()) })
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return fail(fmt.Errorf("init postgres: %w", err))
	}
	a.onClose(pool.Close)

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return fail(fmt.Errorf("init redis: %w", err))
	}
	a.onClose(func() { _ = redisClient.Close() })

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return fail(fmt.Errorf("configure argon2: %w", err))
	}

	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer)
	if err != nil {
		return fail(fmt.Errorf("init token issuer: %w", err))
	}

	repos := postgresrepo.NewRepositories(pool)
	sessionStore := redisrepo.NewSessionStore(redisClient.Client(), cfg.Redis.SessionPrefix)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "confess:rate-limit",
		TTL:       rateLimitWindow * 2,
	})

	eventPublisher := a.newEventPublisher(cfg, log)

	passwordValidator := security.NewPolicyValidator(security.PasswordPolicy{
		MinLength:        cfg.Password.MinLength,
		MaxLength:        cfg.Password.MaxLength,
		MinStrengthScore: cfg.Password.MinStrengthScore,
	})

	sessionService := usecase.NewSessionService(sessionStore, eventPublisher, cfg.Session.IdleTTL, log)
	authService := usecase.NewAuthService(cfg, repos.Accounts, sessionService, issuer, rateLimitStore, eventPublisher, log)
	authService.WithMetrics(metrics)
	registrationService := usecase.NewRegistrationService(repos.Accounts, eventPublisher, passwordValidator, log)
	passwordService := usecase.NewPasswordService(cfg, repos.Accounts, rateLimitStore, eventPublisher, passwordValidator, log)
	passwordService.WithMetrics(metrics)
	profileService := usecase.NewProfileService(repos.Accounts)
	confessionService := usecase.NewConfessionService(repos.Confessions)
	contactService := usecase.NewContactService(repos.Contacts)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return fail(fmt.Errorf("init http metrics: %w", err))
	}

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Passwords:    passwordService,
			Profiles:     profileService,
			Confessions:  confessionService,
			Contacts:     contactService,
			Sessions:     sessionService,
		},
	})

	return a, nil
}

// newEventPublisher prefers Kafka and falls back to the logging stub so the
// API stays usable in environments without a broker.
func (a *Application) newEventPublisher(cfg *config.AppConfig, log *zap.Logger) port.EventPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}

	a.onClose(func() { _ = producer.Close() })
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down gracefully and releases all resources.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting confession API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serveErr:
		return err
	}
}
