package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coachgraph/src/adapters/kafka/consumers"
	"coachgraph/src/domain"
	"coachgraph/src/helper/clock"
	"coachgraph/src/helper/env"
	"coachgraph/src/infra/kafka"
	"coachgraph/src/infra/postgres"
	"coachgraph/src/infra/redis"
	"coachgraph/src/repositories"
	"coachgraph/src/services/events"
	"coachgraph/src/services/graph"

	"go.uber.org/fx"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting Graph Mutations Consumer with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newReadWriteClient,
			newRedisClient,
			newKafkaClient,
			newEventPublisher,
			newCachedGraphQueryRepository,
			newGraphWriteRepository,
			newGraphService,
			newGraphMutationsConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	// Start the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer application: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down graph mutations consumer...")

	// Stop the application
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Graph mutations consumer shutdown complete")
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

// O mesmo client consome os comandos e publica os eventos resultantes.
func newKafkaClient(logger *slog.Logger) (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	groupID := env.MustGetString("KAFKA_MUTATIONS_CONSUMER_GROUP_ID")
	batchSize := env.MustGetInt("KAFKA_BATCH_SIZE")

	return kafka.NewKafkaClient(logger, brokers, groupID, batchSize)
}

func newEventPublisher(logger *slog.Logger, kafkaClient *kafka.KafkaClient) domain.EventPublisher {
	topic := env.GetString("KAFKA_EVENTS_TOPIC", "graph-events")
	return events.NewDomainEventPublisher(logger, kafkaClient, topic)
}

// Sem repositório de leitura: the consumer only needs the cache to bump the
// user's generation after each write.
func newCachedGraphQueryRepository(
	logger *slog.Logger,
	redisClient *redis.RedisClient,
) *repositories.CachedGraphQueryRepository {
	return repositories.NewCachedGraphQueryRepository(logger, nil, redisClient)
}

func newGraphWriteRepository(
	logger *slog.Logger,
	readWriteClient *postgres.ReadWriteClient,
	cachedGraphQueryRepository *repositories.CachedGraphQueryRepository,
) *repositories.GraphWriteRepository {
	return repositories.NewGraphWriteRepository(logger, readWriteClient.GetWritePool(), cachedGraphQueryRepository)
}

func newGraphService(
	logger *slog.Logger,
	readWriteClient *postgres.ReadWriteClient,
	graphWriteRepository *repositories.GraphWriteRepository,
	publisher domain.EventPublisher,
) *graph.GraphService {
	primaryReader := repositories.NewGraphQueryRepository(readWriteClient.GetWritePool())
	return graph.NewGraphService(logger, primaryReader, graphWriteRepository, publisher, clock.New())
}

func newGraphMutationsConsumer(
	logger *slog.Logger,
	graphService *graph.GraphService,
) *consumers.GraphMutationsConsumer {
	return consumers.NewGraphMutationsConsumer(logger, graphService)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	readWriteClient *postgres.ReadWriteClient,
	redisClient *redis.RedisClient,
	mutationsConsumer *consumers.GraphMutationsConsumer,
) {
	consumeCtx, cancelConsume := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			topic := env.GetString("KAFKA_MUTATIONS_TOPIC", "graph-mutations")
			logger.Info("Starting graph mutations consumer", "topic", topic)

			// Start consumer in background
			go func() {
				if err := mutationsConsumer.Start(consumeCtx, kafkaClient, topic); err != nil {
					logger.Error("Consumer failed", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelConsume()

			logger.Info("Shutting down Kafka client...")
			if err := kafkaClient.Close(); err != nil {
				logger.Error("Failed to close Kafka client", "error", err)
				return err
			}
			if err := redisClient.Close(); err != nil {
				logger.Error("Failed to close Redis client", "error", err)
			}
			readWriteClient.Close()
			logger.Info("Kafka client shut down gracefully")
			return nil
		},
	})
}
