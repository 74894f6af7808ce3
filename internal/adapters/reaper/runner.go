// Package reaper provides the staleness-recovery loop. It periodically
// returns jobs abandoned in claimed/processing back to pending so another
// worker can pick them up.
package reaper

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/pageforge/ocrworker/internal/core"
	"github.com/pageforge/ocrworker/internal/data"
	"github.com/pageforge/ocrworker/internal/observability/metrics"
	"github.com/pageforge/ocrworker/internal/observability/statsd"
)

const (
	defaultInterval       = time.Minute
	defaultStaleThreshold = 10 * time.Minute
)

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Interval between recovery passes; defaults to 1m.
	Interval time.Duration
	// StaleThreshold is how long a job may sit in claimed/processing before
	// it is considered abandoned; defaults to 10m. Must comfortably exceed
	// the longest expected document processing time.
	StaleThreshold time.Duration

	// Optional dependency injections for testing/decoupling
	Repo    core.RecoveryStore
	Metrics statsd.Sink
}

// Runner drives periodic staleness recovery until its context is cancelled.
// Multiple runner instances are safe: the reclaim query takes an advisory
// lock, so concurrent passes do not double-reclaim.
type Runner struct {
	repo           core.RecoveryStore
	interval       time.Duration
	staleThreshold time.Duration
	logger         *slog.Logger
	metrics        statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Repo == nil {
		return nil, errors.New("either DB or Repo must be provided")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	threshold := opts.StaleThreshold
	if threshold <= 0 {
		threshold = defaultStaleThreshold
	}
	repo := opts.Repo
	if repo == nil {
		repo = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: logger})
	}
	return &Runner{
		repo:           repo,
		interval:       interval,
		staleThreshold: threshold,
		logger:         logger.With("component", "reaper"),
		metrics:        opts.Metrics,
	}, nil
}

// Run starts the recovery loop and runs until the context is cancelled.
// Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper",
		"interval", r.interval,
		"stale_threshold", r.staleThreshold,
	)

	// Jitter so reapers started together across hosts do not all fire at
	// the same instant.
	r.waitWithJitter(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reaper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			r.runPass(ctx)
		}
	}
}

// waitWithJitter delays up to 10% of the interval before the first pass.
func (r *Runner) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		r.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// runPass reclaims stale jobs and publishes queue-depth gauges. Errors are
// logged and the loop keeps running; a transiently unavailable database must
// not kill the reaper.
func (r *Runner) runPass(ctx context.Context) {
	reclaimed, err := r.repo.ReclaimStale(ctx, r.staleThreshold)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		r.logger.ErrorContext(ctx, "reclaim stale jobs failed", "error", err)
	case reclaimed > 0:
		r.logger.InfoContext(ctx, "reclaimed stale jobs", "count", reclaimed)
		metrics.EmitReclaimed(r.metrics, reclaimed)
	}

	stats, err := r.repo.Stats(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.WarnContext(ctx, "job stats unavailable", "error", err)
		}
		return
	}
	metrics.EmitQueueDepth(r.metrics, *stats)
}
