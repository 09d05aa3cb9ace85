package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/config"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/database"
	kafkainfra "github.com/Rethick-Jeganathan/Procura/internal/infra/kafka"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/logger"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/provider"
	redisinfra "github.com/Rethick-Jeganathan/Procura/internal/infra/redis"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/security"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/telemetry"
	postgresrepo "github.com/Rethick-Jeganathan/Procura/internal/repository/postgres"
	redisrepo "github.com/Rethick-Jeganathan/Procura/internal/repository/redis"
	"github.com/Rethick-Jeganathan/Procura/internal/transport/http/middleware"
	"github.com/Rethick-Jeganathan/Procura/internal/transport/http/routes"
	"github.com/Rethick-Jeganathan/Procura/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	tracer   *telemetry.TracerProvider
	consumer *kafkainfra.IdentityConsumer
	producer *kafkainfra.Producer
	sync     *usecase.SyncService
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
		}
	}

	metrics := telemetry.NewMetrics()

	if err := database.RunMigrations(cfg.Postgres, cfg.App.MigrationsDir, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	profileRepo := postgresrepo.NewProfileRepository(pool)
	identityRepo := postgresrepo.NewIdentityRepository(pool)

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	identityProvider, err := provider.NewClient(cfg.Provider, log)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init identity provider: %w", err)
	}
	passwordValidator := security.DefaultPasswordValidator()

	sessions := usecase.NewSessionManager(cfg.Provider.JWTSecret, log)
	governors := usecase.NewGovernorRegistry(cfg.Governor.SessionTTL,
		usecase.WithGovernorLimits(cfg.Governor.FailureThreshold, cfg.Governor.BaseCooldown, cfg.Governor.MaxCooldown),
	)

	syncService := usecase.NewSyncService(identityRepo, profileRepo, eventPublisher, log).
		WithMetrics(metrics)
	authService := usecase.NewAuthService(identityProvider, sessions, governors, profileRepo, log)
	registrationService := usecase.NewRegistrationService(identityProvider, passwordValidator, log)

	resetTokens := redisrepo.NewResetTokenStore(redisClient.Client(), "procura:reset-token")
	resetService := usecase.NewPasswordResetService(identityProvider, resetTokens, passwordValidator, cfg.Redis.ResetTokenTTL, log)

	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), cfg.Redis.RateLimitPrefix)
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log).WithObserver(metrics)

	var consumer *kafkainfra.IdentityConsumer
	if len(cfg.Kafka.Brokers) > 0 {
		consumer = kafkainfra.NewIdentityConsumer(syncService, log)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Profiles:    profileRepo,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			PasswordReset: resetService,
			Sync:          syncService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		tracer:   tracer,
		consumer: consumer,
		producer: producer,
		sync:     syncService,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	consumerErrCh := make(chan error, 1)
	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx, a.cfg.Kafka); err != nil {
				consumerErrCh <- fmt.Errorf("run identity consumer: %w", err)
			}
		}()
	}

	if a.cfg.Sync.CheckInterval > 0 {
		go a.sync.Watch(ctx, a.cfg.Sync.CheckInterval)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting identity API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-consumerErrCh:
		return err
	}
}
