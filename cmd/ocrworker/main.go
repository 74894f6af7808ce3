package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/pageforge/ocrworker/config"
	"github.com/pageforge/ocrworker/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()

	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "service exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logStartupInfo(ctx, logger, &cfg)

	if err := bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	db, redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.ErrorContext(ctx, "failed to close database connection", slog.Any("error", closeErr))
		}
	}()
	if redisClient != nil {
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logger.ErrorContext(ctx, "failed to close redis connection", slog.Any("error", closeErr))
			}
		}()
	}

	if cfg.Postgres.RunMigrationsOnStart {
		if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	} else {
		logger.InfoContext(ctx, "skipping migrations on start (RUN_MIGRATIONS_ON_START=false)")
	}

	metrics := bootstrap.BuildMetricsSink(logger, cfg.Observability.Metrics)
	if metrics != nil {
		defer func() {
			if closeErr := metrics.Close(); closeErr != nil {
				logger.ErrorContext(ctx, "failed to close metrics sink", slog.Any("error", closeErr))
			}
		}()
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
		Metrics:     metrics,
	})
}

// initInfrastructure connects to Postgres and, when the document cache is
// enabled, Redis. The database connection is closed on any later failure so
// the caller only cleans up on success.
func initInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*sql.DB, redis.UniversalClient, error) {
	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      logger,
	}

	db, err := bootstrap.ConnectDB(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if !cfg.Cache.Enabled {
		logger.InfoContext(ctx, "document cache disabled, skipping redis connection")
		return db, nil, nil
	}

	redisClient, err := bootstrap.ConnectRedis(dbCfg)
	if err != nil {
		err = fmt.Errorf("connect to redis: %w", err)
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, nil, err
	}

	return db, redisClient, nil
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting ocrworker",
		slog.String("services", cfg.Services),
		slog.Bool("is_dev", cfg.IsDev),
		slog.String("db_host", cfg.Postgres.Host),
		slog.Int("db_port", cfg.Postgres.Port),
		slog.String("db_name", cfg.Postgres.Name),
		slog.Int("worker_concurrency", cfg.Worker.Concurrency),
		slog.String("output_format", cfg.Worker.OutputFormat),
	)
}
