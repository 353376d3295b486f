package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kvanroon/energy-stream-monitor/internal/anomaly"
	"github.com/kvanroon/energy-stream-monitor/internal/config"
	"github.com/kvanroon/energy-stream-monitor/internal/db"
	"github.com/kvanroon/energy-stream-monitor/internal/metrics"
	"github.com/kvanroon/energy-stream-monitor/internal/mq"
	"github.com/kvanroon/energy-stream-monitor/internal/repository"
	"github.com/kvanroon/energy-stream-monitor/internal/service"
	"github.com/kvanroon/energy-stream-monitor/internal/simulator"
	"github.com/kvanroon/energy-stream-monitor/internal/stats"
	"github.com/kvanroon/energy-stream-monitor/internal/stream"
	"github.com/kvanroon/energy-stream-monitor/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// startWorker starts the configured stream source: the synthetic generator
// driver in simulate mode, or the ingest queue consumer in consume mode.
func startWorker(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.Processor,
	gen *simulator.Generator,
	conn *mq.Connection,
	repo *repository.Repository,
) error {
	ctx, cancel := context.WithCancel(context.Background())

	switch cfg.Source {
	case config.SourceSimulate:
		driver, err := stream.NewDriver(gen, processor, stream.Config{
			Increment:      cfg.Stream.IncrementSeconds,
			Delay:          time.Duration(cfg.Stream.DelayMillis) * time.Millisecond,
			StartTimestamp: cfg.Stream.StartTimestamp,
			Backfill:       cfg.Stream.Backfill,
			WindowSize:     cfg.Window.Size,
		}, logger)
		if err != nil {
			cancel()
			return err
		}

		lc.Append(fx.Hook{
			OnStart: func(startCtx context.Context) error {
				logger.Info("starting simulated stream",
					zap.String("run_id", processor.RunID().String()),
					zap.Int("window_size", cfg.Window.Size),
					zap.Float64("threshold", cfg.Anomaly.Threshold),
				)
				go func() {
					if err := driver.Run(ctx); err != nil {
						logger.Error("stream driver exited with error", zap.Error(err))
					}
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				logger.Info("stream driver stopped gracefully")
				return nil
			},
		})
		return nil

	case config.SourceConsume:
		consumer, err := mq.NewConsumer(mq.ConsumerConfig{
			Connection:       conn,
			Queue:            cfg.RabbitMQ.IngestQueue,
			DLQQueue:         cfg.RabbitMQ.DLQQueue,
			Exchange:         cfg.RabbitMQ.IngestExchange,
			RoutingKey:       cfg.RabbitMQ.IngestRoutingKey,
			PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
			Logger:           logger,
			MessageProcessor: processor.ProcessMessage,
		})
		if err != nil {
			cancel()
			return err
		}

		lc.Append(fx.Hook{
			OnStart: func(startCtx context.Context) error {
				// Warm-start the window from persisted history so live
				// readings are classifiable sooner after a restart.
				values, err := repo.RecentValues(startCtx, cfg.Window.Size-1)
				if err != nil {
					logger.Warn("failed to load recent values for warm start", zap.Error(err))
				} else if len(values) > 0 {
					if err := processor.Seed(values); err != nil {
						return err
					}
					logger.Info("window warm-started from stored readings", zap.Int("points", len(values)))
				}

				logger.Info("starting stream consumer",
					zap.String("queue", cfg.RabbitMQ.IngestQueue),
					zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount),
				)
				return consumer.Start(ctx)
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				if err := consumer.Close(); err != nil {
					logger.Error("failed to close consumer", zap.Error(err))
					return err
				}
				logger.Info("stream consumer stopped gracefully")
				return nil
			},
		})
		return nil

	default:
		cancel()
		return fmt.Errorf("unknown stream source %q", cfg.Source)
	}
}

// startMetricsServer exposes prometheus metrics and operational stats.
func startMetricsServer(lc fx.Lifecycle, logger *zap.Logger, repo *repository.Repository, cfg *config.Config) {
	metrics.StartServer(lc, logger, repo, cfg.ServicePort)
}

// ProvideDBPool creates the postgres connection pool.
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates the classified-readings repository.
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideWindow creates the rolling statistics window.
func ProvideWindow(cfg *config.Config) (*stats.Window, error) {
	return stats.NewWindow(cfg.Window.Size, cfg.Window.ResyncInterval)
}

// ProvideClassifier creates the anomaly classifier.
func ProvideClassifier(cfg *config.Config) (*anomaly.Classifier, error) {
	return anomaly.NewClassifier(cfg.Anomaly.Threshold, cfg.Window.MinPoints)
}

// ProvideValidator creates the ingest reading validator.
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.TimestampToleranceMinutes)
}

// ProvideGenerator creates the synthetic signal generator.
func ProvideGenerator(cfg *config.Config) (*simulator.Generator, error) {
	return simulator.NewGenerator(simulator.Params{
		SeasonalAmplitude: cfg.Simulator.SeasonalAmplitude,
		SeasonalPeriod:    cfg.Simulator.SeasonalPeriod,
		SeasonalPhase:     cfg.Simulator.SeasonalPhase,
		RegularAmplitude:  cfg.Simulator.RegularAmplitude,
		RegularPeriod:     cfg.Simulator.RegularPeriod,
		RegularPhase:      cfg.Simulator.RegularPhase,
		NoiseStdDev:       cfg.Simulator.NoiseStdDev,
		Offset:            cfg.Simulator.Offset,
		Seeded:            cfg.Simulator.Seeded,
		Seed:              cfg.Simulator.Seed,
	})
}

// ProvideMQConnection creates the RabbitMQ connection.
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the classified-events publisher.
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
}

// ProvideProcessor creates the per-point processing pipeline.
func ProvideProcessor(
	window *stats.Window,
	classifier *anomaly.Classifier,
	v *validator.Validator,
	repo *repository.Repository,
	publisher *mq.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *service.Processor {
	return service.NewProcessor(window, classifier, v, repo, publisher, cfg, logger)
}
