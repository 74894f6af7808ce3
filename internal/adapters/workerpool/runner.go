// Package workerpool runs the claim-and-process worker loops. Each loop
// claims one job at a time from the shared table and drives it through the
// processor; mutual exclusion between loops and between hosts comes entirely
// from the atomic claim.
package workerpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pageforge/ocrworker/internal/core"
	"github.com/pageforge/ocrworker/internal/data"
	"github.com/pageforge/ocrworker/internal/domain/model"
	"github.com/pageforge/ocrworker/internal/observability/metrics"
	"github.com/pageforge/ocrworker/internal/observability/statsd"
	"github.com/pageforge/ocrworker/internal/processor"
)

const (
	defaultWorkers      = 4
	defaultPollInterval = 5 * time.Second
)

// RunnerOptions configures the worker pool.
type RunnerOptions struct {
	DB        *sql.DB
	Logger    *slog.Logger
	Processor *processor.Processor

	// Workers is the number of concurrent claim loops; defaults to 4.
	Workers int
	// PollInterval is how long an idle loop sleeps when the queue is empty;
	// defaults to 5s. Jobs are inserted by an upstream system, so workers
	// poll rather than listen for notifications.
	PollInterval time.Duration
	// WorkerPrefix prefixes each loop's worker identity; defaults to the
	// hostname. Loop n claims as "<prefix>-<n>".
	WorkerPrefix string

	// Optional dependency injections for testing/decoupling
	Jobs    core.JobStore
	Metrics statsd.Sink
}

// Runner owns the worker loops for one process.
type Runner struct {
	jobs         core.JobStore
	proc         *processor.Processor
	logger       *slog.Logger
	metrics      statsd.Sink
	workers      int
	pollInterval time.Duration
	workerPrefix string
}

// NewRunner wires the job store and constructs a worker pool.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Jobs == nil {
		return nil, errors.New("either DB or Jobs must be provided")
	}
	if opts.Processor == nil {
		return nil, errors.New("processor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	prefix := opts.WorkerPrefix
	if prefix == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "worker"
		}
		prefix = host
	}
	jobs := opts.Jobs
	if jobs == nil {
		jobs = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: logger})
	}
	return &Runner{
		jobs:         jobs,
		proc:         opts.Processor,
		logger:       logger,
		metrics:      opts.Metrics,
		workers:      workers,
		pollInterval: pollInterval,
		workerPrefix: prefix,
	}, nil
}

// Run starts the worker loops and blocks until the context is cancelled or a
// loop hits an unrecoverable claim error. The first such error cancels all
// loops. Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting worker pool",
		"workers", r.workers,
		"poll_interval", r.pollInterval,
		"worker_prefix", r.workerPrefix,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for i := range r.workers {
		workerID := fmt.Sprintf("%s-%d", r.workerPrefix, i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.workerLoop(ctx, workerID); err != nil {
				// first error wins, cancels all workers
				select {
				case errCh <- err:
					cancel()
				default:
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	}
}

func (r *Runner) workerLoop(ctx context.Context, workerID string) error {
	log := r.logger.With("worker_id", workerID)
	log.InfoContext(ctx, "worker loop started")

	for ctx.Err() == nil {
		job, err := r.jobs.ClaimNext(ctx, workerID)
		switch {
		case err == nil:
			r.runJob(ctx, job, log)
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.sleep(ctx) {
				return nil
			}
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return fmt.Errorf("claim next: %w", err)
		}
	}
	return nil
}

func (r *Runner) runJob(ctx context.Context, job *model.Job, log *slog.Logger) {
	log.InfoContext(ctx, "claimed job",
		"job_id", job.ID,
		"document_key", job.DocumentKey,
		"attempt", job.AttemptCount,
	)
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		Transition: "claimed",
		Result:     metrics.ResultSuccess,
	})

	// The processor owns all terminal transitions; an error here is only
	// loggable (store failures, persist left-for-reaper).
	if err := r.proc.Process(ctx, job); err != nil {
		log.ErrorContext(ctx, "job processing incomplete", "job_id", job.ID, "error", err)
	}
}

// sleep waits one poll interval. Returns false when the context ended first.
func (r *Runner) sleep(ctx context.Context) bool {
	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
