package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/pageforge/ocrworker/config"
	"github.com/pageforge/ocrworker/internal/adapters/reaper"
	"github.com/pageforge/ocrworker/internal/adapters/workerpool"
	"github.com/pageforge/ocrworker/internal/core"
	"github.com/pageforge/ocrworker/internal/data"
	"github.com/pageforge/ocrworker/internal/engine"
	"github.com/pageforge/ocrworker/internal/engine/tesseract"
	"github.com/pageforge/ocrworker/internal/observability/statsd"
	"github.com/pageforge/ocrworker/internal/processor"
	"github.com/pageforge/ocrworker/internal/raster/poppler"
	"github.com/pageforge/ocrworker/internal/storage"
)

// ServiceDeps groups dependencies shared by all services in the process.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	Metrics     *statsd.Client
}

// BuildMetricsSink configures the StatsD client, or returns nil when metrics
// are disabled.
func BuildMetricsSink(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "ocrworker",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// buildDocumentStore wires the S3 store, wrapped in the Redis read-through
// cache when caching is enabled.
//
//nolint:ireturn // store selection happens at runtime based on cache config.
func buildDocumentStore(deps *ServiceDeps) (core.DocumentStore, error) {
	s3, err := storage.NewS3Store(context.Background(), storage.S3Config{
		Bucket:    deps.Config.Storage.Bucket,
		Region:    deps.Config.Storage.Region,
		Endpoint:  deps.Config.Storage.Endpoint,
		AccessKey: deps.Config.Storage.AccessKey,
		SecretKey: deps.Config.Storage.SecretKey,
		Timeout:   deps.Config.Storage.Timeout,
	}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("build object store: %w", err)
	}

	if !deps.Config.Cache.Enabled || deps.RedisClient == nil {
		return s3, nil
	}
	cache := data.NewRedisCacheRepo(deps.RedisClient)
	return storage.NewCachedStore(s3, cache, deps.Config.Cache.DocumentTTL, deps.Logger), nil
}

// RunWorker starts the OCR worker pool and blocks until ctx is cancelled.
func RunWorker(ctx context.Context, deps *ServiceDeps) error {
	documents, err := buildDocumentStore(deps)
	if err != nil {
		return err
	}

	eng := tesseract.New(deps.Config.Engine.RecognitionBatchSize)
	if err := eng.Warmup(ctx); err != nil {
		return fmt.Errorf("warm up recognition engine: %w", err)
	}
	defer func() {
		if closeErr := eng.Close(); closeErr != nil {
			deps.Logger.Warn("close recognition engine", "error", closeErr)
		}
	}()

	proc, err := processor.New(processor.Options{
		Jobs:            data.NewJobRepo(deps.DB, data.RepoConfig{Logger: deps.Logger}),
		Documents:       documents,
		Engine:          eng,
		Rasterizer:      poppler.New(),
		Logger:          deps.Logger,
		Metrics:         deps.Metrics,
		DPI:             deps.Config.Worker.RenderDPI,
		PageConcurrency: deps.Config.Worker.PageConcurrency,
		OutputFormat:    processor.Format(deps.Config.Worker.OutputFormat),
		ConfidenceFloor: deps.Config.Worker.ConfidenceFloor,
		EngineRetries:   deps.Config.Engine.PageRetries,
		EngineOptions: engine.Options{
			DetectionThreshold:   deps.Config.Engine.DetectionThreshold,
			RecognitionBatchSize: deps.Config.Engine.RecognitionBatchSize,
			MaxImageSide:         deps.Config.Engine.MaxImageSide,
			Language:             deps.Config.Engine.Language,
		},
	})
	if err != nil {
		return fmt.Errorf("build processor: %w", err)
	}

	runner, err := workerpool.NewRunner(workerpool.RunnerOptions{
		DB:           deps.DB,
		Logger:       deps.Logger,
		Processor:    proc,
		Workers:      deps.Config.Worker.Concurrency,
		PollInterval: deps.Config.Worker.PollInterval,
		WorkerPrefix: deps.Config.Worker.IDPrefix,
		Metrics:      deps.Metrics,
	})
	if err != nil {
		return fmt.Errorf("build worker pool: %w", err)
	}
	return runner.Run(ctx)
}

// RunReaper starts the staleness reaper and blocks until ctx is cancelled.
func RunReaper(ctx context.Context, deps *ServiceDeps) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:             deps.DB,
		Logger:         deps.Logger,
		Interval:       deps.Config.Reaper.Interval,
		StaleThreshold: deps.Config.Reaper.StaleThreshold,
		Metrics:        deps.Metrics,
	})
	if err != nil {
		return fmt.Errorf("build reaper: %w", err)
	}
	return runner.Run(ctx)
}

// serviceHandle tracks one running background service.
type serviceHandle struct {
	name string
	done chan struct{}
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal arrives or a service fails;
// either way all services are stopped before returning.
func RunServicesWithShutdown(deps *ServiceDeps) error {
	if deps == nil || deps.Config == nil {
		return errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
		deps.Logger = logger
	}

	enabled, err := deps.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, len(enabled)+1)
	var handles []serviceHandle

	start := func(name string, run func(context.Context, *ServiceDeps) error) {
		h := serviceHandle{name: name, done: make(chan struct{})}
		handles = append(handles, h)
		go func() {
			defer close(h.done)
			if runErr := run(ctx, deps); runErr != nil {
				errCh <- fmt.Errorf("%s: %w", name, runErr)
			}
		}()
	}

	if enabled[config.ServiceModeWorker] {
		start("worker", RunWorker)
	}
	if enabled[config.ServiceModeReaper] {
		start("reaper", RunReaper)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var cause error
	select {
	case <-quit:
		logger.Info("shutting down services...")
	case cause = <-errCh:
		logger.Error("service error", "error", cause)
	}
	cancel()

	for _, h := range handles {
		<-h.done
		logger.Info("service stopped", "service", h.name)
	}
	return cause
}
