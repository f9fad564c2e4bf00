package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	httpadapter "coachgraph/src/adapters/http"
	"coachgraph/src/domain"
	"coachgraph/src/helper/clock"
	"coachgraph/src/helper/env"
	"coachgraph/src/infra/kafka"
	"coachgraph/src/infra/postgres"
	"coachgraph/src/infra/redis"
	"coachgraph/src/repositories"
	"coachgraph/src/services/event_log"
	"coachgraph/src/services/events"
	"coachgraph/src/services/graph"
	"coachgraph/src/services/snapshot"
	"coachgraph/src/services/timeline"

	"go.uber.org/fx"
)

func main() {
	// Configurar logger
	log.SetOutput(os.Stdout)
	log.Println("Starting API server with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newClock,
			newReadWriteClient,
			newRedisClient,
			newKafkaClient,
			newEventPublisher,
			newGraphQueryRepository,
			newCachedGraphQueryRepository,
			newGraphWriteRepository,
			newEventLogRepository,
			newGraphService,
			newEventLogService,
			newSnapshotService,
			newTimelineLoader,
			newServer,
		),

		// Invocations
		fx.Invoke(registerInfraHooks, registerServerHooks),
	)

	// Start the application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for app to exit gracefully
	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}

func newLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newClock() clock.Clock {
	return clock.New()
}

func newReadWriteClient() (*postgres.ReadWriteClient, error) {
	return postgres.NewReadWriteClient(postgres.Config{
		ReadHost:       env.GetString("DB_READ_HOST", env.GetString("DB_WRITE_HOST")),
		WriteHost:      env.MustGetString("DB_WRITE_HOST"),
		ReadPort:       env.GetString("DB_READ_PORT", "5432"),
		WritePort:      env.GetString("DB_WRITE_PORT", "5432"),
		DBName:         env.MustGetString("DB_NAME"),
		Username:       env.MustGetString("DB_USER"),
		Password:       env.MustGetString("DB_PASSWORD"),
		MaxConnections: env.GetInt("DB_MAX_POOL_CONNECTIONS", 25),
	})
}

func newRedisClient() *redis.RedisClient {
	redisHosts := env.MustGetString("REDIS_HOSTS")
	redisPoolSize := env.GetInt("REDIS_POOL_SIZE", 50)
	redisDefaultTTLSeconds := env.GetInt("REDIS_DEFAULT_TTL_SECONDS", 120)
	redisDefaultTTL := time.Duration(redisDefaultTTLSeconds) * time.Second

	return redis.NewRedisClient(redisHosts, redisPoolSize, redisDefaultTTL)
}

// newKafkaClient returns nil when no broker is configured, events are then
// only stored.
func newKafkaClient(logger *slog.Logger) (*kafka.KafkaClient, error) {
	brokers := env.GetString("KAFKA_BROKERS")
	if brokers == "" {
		logger.Warn("KAFKA_BROKERS not set, graph events will not be published")
		return nil, nil
	}
	return kafka.NewKafkaClient(logger, brokers, "", env.GetInt("KAFKA_BATCH_SIZE", 100))
}

func newEventPublisher(logger *slog.Logger, kafkaClient *kafka.KafkaClient) domain.EventPublisher {
	if kafkaClient == nil {
		return nil
	}
	topic := env.GetString("KAFKA_EVENTS_TOPIC", "graph-events")
	return events.NewDomainEventPublisher(logger, kafkaClient, topic)
}

func newGraphQueryRepository(readWriteClient *postgres.ReadWriteClient) *repositories.GraphQueryRepository {
	return repositories.NewGraphQueryRepository(readWriteClient.GetReadPool())
}

func newCachedGraphQueryRepository(
	logger *slog.Logger,
	graphQueryRepository *repositories.GraphQueryRepository,
	redisClient *redis.RedisClient,
) *repositories.CachedGraphQueryRepository {
	return repositories.NewCachedGraphQueryRepository(logger, graphQueryRepository, redisClient)
}

func newGraphWriteRepository(
	logger *slog.Logger,
	readWriteClient *postgres.ReadWriteClient,
	cachedGraphQueryRepository *repositories.CachedGraphQueryRepository,
) *repositories.GraphWriteRepository {
	return repositories.NewGraphWriteRepository(logger, readWriteClient.GetWritePool(), cachedGraphQueryRepository)
}

func newEventLogRepository(readWriteClient *postgres.ReadWriteClient) *repositories.EventLogRepository {
	return repositories.NewEventLogRepository(readWriteClient.GetReadPool())
}

// newGraphService reads ownership from the primary, a lagging replica could
// hide a node created a moment ago.
func newGraphService(
	logger *slog.Logger,
	readWriteClient *postgres.ReadWriteClient,
	graphWriteRepository *repositories.GraphWriteRepository,
	publisher domain.EventPublisher,
	clk clock.Clock,
) *graph.GraphService {
	primaryReader := repositories.NewGraphQueryRepository(readWriteClient.GetWritePool())
	return graph.NewGraphService(logger, primaryReader, graphWriteRepository, publisher, clk)
}

func newEventLogService(
	logger *slog.Logger,
	readWriteClient *postgres.ReadWriteClient,
	graphWriteRepository *repositories.GraphWriteRepository,
	eventLogRepository *repositories.EventLogRepository,
	publisher domain.EventPublisher,
	clk clock.Clock,
) *event_log.EventLogService {
	primaryReader := repositories.NewGraphQueryRepository(readWriteClient.GetWritePool())
	return event_log.NewEventLogService(logger, primaryReader, graphWriteRepository, eventLogRepository, publisher, clk)
}

func newSnapshotService(
	logger *slog.Logger,
	cachedGraphQueryRepository *repositories.CachedGraphQueryRepository,
	eventLogRepository *repositories.EventLogRepository,
) (*snapshot.SnapshotService, error) {
	strategy := env.GetString("SNAPSHOT_STRATEGY", snapshot.StrategyCurrentState)
	reconstructor, err := snapshot.NewReconstructor(strategy, cachedGraphQueryRepository, eventLogRepository)
	if err != nil {
		return nil, err
	}
	logger.Info("Snapshot reconstructor selected", "strategy", strategy)
	return snapshot.NewSnapshotService(logger, reconstructor), nil
}

func newTimelineLoader(
	cachedGraphQueryRepository *repositories.CachedGraphQueryRepository,
	eventLogRepository *repositories.EventLogRepository,
	clk clock.Clock,
) *timeline.Loader {
	return timeline.NewLoader(cachedGraphQueryRepository, eventLogRepository, clk)
}

func newServer(
	logger *slog.Logger,
	graphService *graph.GraphService,
	eventLogService *event_log.EventLogService,
	snapshotService *snapshot.SnapshotService,
	timelineLoader *timeline.Loader,
) *httpadapter.Server {
	addr := env.GetString("SERVER_ADDR", ":8888")
	return httpadapter.NewServer(logger, addr, graphService, eventLogService, snapshotService, timelineLoader)
}

// registerInfraHooks checks the stores and applies the schema on start
// (DB_AUTO_MIGRATE), and closes every client on stop.
func registerInfraHooks(
	lc fx.Lifecycle,
	logger *slog.Logger,
	readWriteClient *postgres.ReadWriteClient,
	redisClient *redis.RedisClient,
	kafkaClient *kafka.KafkaClient,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := readWriteClient.Ping(ctx); err != nil {
				return err
			}
			if err := redisClient.HealthCheck(ctx); err != nil {
				logger.Warn("Redis unavailable, snapshots will read from PostgreSQL", "error", err)
			}
			if env.GetBool("DB_AUTO_MIGRATE", false) {
				logger.Info("Applying graph schema")
				return postgres.Migrate(ctx, readWriteClient.GetWritePool())
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if kafkaClient != nil {
				if err := kafkaClient.Close(); err != nil {
					logger.Error("Failed to close Kafka client", "error", err)
				}
			}
			if err := redisClient.Close(); err != nil {
				logger.Error("Failed to close Redis client", "error", err)
			}
			readWriteClient.Close()
			return nil
		},
	})
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, logger *slog.Logger, srv *httpadapter.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start server in a separate goroutine
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Create timeout context for graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "error", err)
				return err
			}
			logger.Info("Server exited gracefully")
			return nil
		},
	})
}
