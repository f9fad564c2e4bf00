// timeline-replay autoplays a user's graph history through a timeline
// controller and logs every snapshot it applies.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coachgraph/src/helper/clock"
	"coachgraph/src/helper/env"
	"coachgraph/src/infra/postgres"
	"coachgraph/src/repositories"
	"coachgraph/src/services/snapshot"
	"coachgraph/src/services/timeline"

	"go.uber.org/fx"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting timeline replay with Uber Fx...")

	app := fx.New(
		fx.Provide(
			newLogger,
			newClock,
			newReadWriteClient,
			newGraphQueryRepository,
			newEventLogRepository,
			newSnapshotService,
			newTimelineLoader,
		),
		fx.Invoke(registerReplay),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start replay: %v", err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	select {
	case <-signals:
	case <-app.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop replay gracefully: %v", err)
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
		MaxConnections: env.GetInt("DB_MAX_POOL_CONNECTIONS", 5),
	})
}

func newGraphQueryRepository(readWriteClient *postgres.ReadWriteClient) *repositories.GraphQueryRepository {
	return repositories.NewGraphQueryRepository(readWriteClient.GetReadPool())
}

func newEventLogRepository(readWriteClient *postgres.ReadWriteClient) *repositories.EventLogRepository {
	return repositories.NewEventLogRepository(readWriteClient.GetReadPool())
}

func newSnapshotService(
	logger *slog.Logger,
	graphQueryRepository *repositories.GraphQueryRepository,
	eventLogRepository *repositories.EventLogRepository,
) (*snapshot.SnapshotService, error) {
	reconstructor, err := snapshot.NewReconstructor(env.GetString("SNAPSHOT_STRATEGY"), graphQueryRepository, eventLogRepository)
	if err != nil {
		return nil, err
	}
	return snapshot.NewSnapshotService(logger, reconstructor), nil
}

func newTimelineLoader(
	graphQueryRepository *repositories.GraphQueryRepository,
	eventLogRepository *repositories.EventLogRepository,
	clk clock.Clock,
) *timeline.Loader {
	return timeline.NewLoader(graphQueryRepository, eventLogRepository, clk)
}

func registerReplay(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	logger *slog.Logger,
	clk clock.Clock,
	readWriteClient *postgres.ReadWriteClient,
	snapshotService *snapshot.SnapshotService,
	loader *timeline.Loader,
) {
	userID := env.MustGetString("REPLAY_USER_ID")
	speed := env.GetFloat("REPLAY_SPEED", 3600)
	replayCtx, cancelReplay := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			view, err := loader.Load(ctx, userID)
			if err != nil {
				return err
			}
			logger.Info("Replaying timeline",
				"user_id", userID,
				"start", view.TimeRange.Start,
				"end", view.TimeRange.End,
				"sessions", len(view.Sessions),
				"speed", speed)

			controller, err := timeline.NewController(timeline.Options{
				UserID:        userID,
				TimeRange:     view.TimeRange,
				CurrentTime:   view.TimeRange.Start,
				PlaybackSpeed: speed,
				Fetcher:       snapshotService,
				Clock:         clk,
				Logger:        logger,
				OnUpdate: func(state timeline.State) {
					if state.Err != nil {
						logger.Warn("Snapshot failed, keeping last frame", "at", state.CurrentTime, "error", state.Err)
						return
					}
					logger.Info("Snapshot applied",
						"at", state.Snapshot.At,
						"nodes", len(state.Snapshot.Nodes),
						"edges", len(state.Snapshot.Edges),
						"playing", state.IsPlaying)
					if !state.IsPlaying && state.Snapshot.At.Equal(view.TimeRange.End) {
						cancelReplay()
					}
				},
			})
			if err != nil {
				return err
			}
			if err := controller.TogglePlayPause(); err != nil {
				return err
			}

			go func() {
				controller.Run(replayCtx)
				logger.Info("Replay finished", "user_id", userID)
				if err := shutdowner.Shutdown(); err != nil {
					logger.Error("Failed to shut down after replay", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelReplay()
			readWriteClient.Close()
			return nil
		},
	})
}
