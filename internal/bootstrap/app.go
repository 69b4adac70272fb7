package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/handlers"
	"github.com/cassiomorais/reminders/internal/infrastructure/config"
	"github.com/cassiomorais/reminders/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/reminders/internal/infrastructure/redis"
	"github.com/cassiomorais/reminders/internal/repository/postgres"
	"github.com/cassiomorais/reminders/internal/service"
)

// App holds the shared wiring for every binary: infrastructure clients plus
// the fully assembled event system.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Metrics    *observability.Metrics
	EventStore event.Store
	Dispatcher *event.Dispatcher
	Producer   *infraRedis.StreamProducer
	Recovery   *service.RecoveryService
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	metrics := observability.NewMetrics(metricsNamespace, nil)
	logger.Info().Msg("Metrics initialized")

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("Connected to Redis")

	store := postgres.NewEventRepository(pool, logger)
	dispatcher := event.NewDispatcher(event.DispatcherConfig{
		Store:      store,
		Logger:     logger,
		Hook:       metrics,
		MaxRetries: cfg.Events.MaxRetries,
	})

	producer := infraRedis.NewStreamProducer(redisClient)
	policy := &event.RetryPolicy{
		MaxRetries:        cfg.Events.MaxRetries,
		BaseDelay:         cfg.Events.BaseDelay,
		BackoffMultiplier: cfg.Events.BackoffMultiplier,
		Jitter:            cfg.Events.Jitter,
	}
	handlers.RegisterAll(dispatcher, handlers.Deps{
		Logger:   logger,
		Producer: producer,
		Policy:   policy,
	})
	logger.Info().
		Strs("event_types", dispatcher.SubscribedEventTypes()).
		Msg("Event handlers registered")

	newLock := func() service.Lock {
		return infraRedis.NewDistributedLock(redisClient, "event-recovery", cfg.Events.RecoveryLockTTL)
	}
	recovery := service.NewRecoveryService(
		dispatcher,
		newLock,
		metrics,
		logger,
		cfg.Events.RecoveryBatchSize,
	)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Pool:       pool,
		Redis:      redisClient,
		Metrics:    metrics,
		EventStore: store,
		Dispatcher: dispatcher,
		Producer:   producer,
		Recovery:   recovery,
	}, nil
}

func (a *App) Close() {
	a.Redis.Close()
	a.Pool.Close()
}
