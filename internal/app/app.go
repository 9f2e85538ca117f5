// Package app wires together all dependencies and runs the ratings service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sellforge/ratings-service/internal/auth"
	"github.com/sellforge/ratings-service/internal/cache"
	"github.com/sellforge/ratings-service/internal/client"
	"github.com/sellforge/ratings-service/internal/config"
	"github.com/sellforge/ratings-service/internal/event"
	handler "github.com/sellforge/ratings-service/internal/handler/http"
	"github.com/sellforge/ratings-service/internal/reminder"
	"github.com/sellforge/ratings-service/internal/repository/postgres"
	"github.com/sellforge/ratings-service/internal/service"
	"github.com/sellforge/ratings-service/migrations"
	"github.com/sellforge/ratings-service/pkg/database"
	"github.com/sellforge/ratings-service/pkg/health"
	"github.com/sellforge/ratings-service/pkg/httpclient"
	pkgkafka "github.com/sellforge/ratings-service/pkg/kafka"
	"github.com/sellforge/ratings-service/pkg/middleware"
	"github.com/sellforge/ratings-service/pkg/tracing"
)

const serviceName = "ratings"

// App holds the service's long-lived components.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *goredis.Client
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	reminderWorker *reminder.Worker
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis for the read-through cache.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)
	appCache := cache.New(redisClient, cfg.CacheTTL(), logger)

	// Initialize Kafka producer with connection validation and retry.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
		logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(producer, logger)

	// Catalog client behind a circuit breaker.
	catalogHTTP := httpclient.New(httpclient.Config{
		Timeout:    cfg.CatalogTimeout(),
		MaxRetries: 2,
	})
	catalogCB := httpclient.NewCircuitBreakerClient(
		catalogHTTP,
		httpclient.DefaultCircuitBreakerConfig("catalog"),
		logger,
	)
	catalog := client.NewCatalogClient(catalogCB, cfg.CatalogBaseURL, logger)

	// Build the dependency graph.
	reviewRepo := postgres.NewReviewRepository(pool)
	attributeRepo := postgres.NewAttributeRepository(pool)
	characteristicRepo := postgres.NewCharacteristicRepository(pool)
	summaryRepo := postgres.NewSummaryRepository(pool)
	invitationRepo := postgres.NewInvitationRepository(pool)

	scoringService := service.NewScoringService(reviewRepo, summaryRepo, appCache, eventProducer, logger)
	reviewService := service.NewReviewService(
		reviewRepo, attributeRepo, characteristicRepo,
		scoringService, catalog, appCache, eventProducer,
		cfg.AutoApprove, logger,
	)
	attributeService := service.NewAttributeService(attributeRepo, appCache, logger)
	characteristicService := service.NewCharacteristicService(characteristicRepo, appCache, logger)

	// Order-completed consumer feeds the reminder pipeline.
	consumerHandler := event.NewConsumerHandler(invitationRepo, cfg.ReminderDelay(), logger)
	idempotencyStore := pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	consumers := event.NewConsumers(
		cfg.KafkaBrokers,
		pkgkafka.IdempotentHandler(idempotencyStore, consumerHandler.Handle, logger),
		logger,
	)

	reminderWorker := reminder.NewWorker(
		invitationRepo, eventProducer,
		cfg.ReminderInterval(), cfg.ReminderBatchSize, logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	jwtManager := auth.NewJWTManager(cfg.JWTSecret)

	router := handler.NewRouter(
		reviewService, scoringService, attributeService, characteristicService,
		jwtManager, healthHandler, logger,
		handler.RouterConfig{
			ServiceName:    serviceName,
			SubmitRPS:      cfg.SubmitRPS,
			SubmitBurst:    cfg.SubmitBurst,
			PprofCIDRs:     cfg.PprofAllowedCIDRs,
			TracingEnabled: cfg.OTELEnabled,
			CORS: middleware.CORSConfig{
				AllowedOrigins: cfg.CORSAllowedOrigins,
				Environment:    cfg.Environment,
			},
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		consumers:      consumers,
		reminderWorker: reminderWorker,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server, Kafka consumers, and the reminder worker, then
// blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	for _, c := range a.consumers {
		consumer := c
		go func() {
			if err := consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go a.reminderWorker.Run(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka consumers
// 4. Kafka producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	for _, consumer := range a.consumers {
		if err := consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := producer.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < 2 {
			base := time.Duration(1<<uint(attempt)) * time.Second
			jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
			wait := base + jitter
			logger.Warn("kafka producer ping failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", 3),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
