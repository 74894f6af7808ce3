// Package processor drives a single claimed job through the full pipeline:
// fetch document, rasterize pages, recognize each page with bounded fan-out,
// assemble the document result, persist it, and finalize the job status.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pageforge/ocrworker/internal/core"
	"github.com/pageforge/ocrworker/internal/domain/model"
	"github.com/pageforge/ocrworker/internal/engine"
	"github.com/pageforge/ocrworker/internal/observability/metrics"
	"github.com/pageforge/ocrworker/internal/observability/statsd"
	"github.com/pageforge/ocrworker/internal/pipeline"
	"github.com/pageforge/ocrworker/internal/raster"
	"github.com/pageforge/ocrworker/internal/storage"
)

// Format selects the persisted result shape.
type Format string

const (
	// FormatClean persists filtered, reading-ordered text blocks only.
	FormatClean Format = "clean"
	// FormatVerbose additionally carries the raw engine regions per page.
	FormatVerbose Format = "verbose"
)

// Valid reports whether f is a known output format.
func (f Format) Valid() bool {
	return f == FormatClean || f == FormatVerbose
}

const (
	defaultDPI             = 150
	defaultPageConcurrency = 2
)

// Options configures a Processor.
type Options struct {
	Jobs       core.JobStore
	Documents  core.DocumentStore
	Engine     engine.Engine
	Rasterizer raster.Rasterizer
	Logger     *slog.Logger
	Metrics    statsd.Sink

	// DPI is the rasterization resolution; defaults to 150.
	DPI int
	// PageConcurrency bounds how many pages of one job are recognized
	// simultaneously; defaults to 2.
	PageConcurrency int
	// OutputFormat defaults to clean.
	OutputFormat Format
	// ConfidenceFloor discards recognized regions below this confidence.
	ConfidenceFloor float64
	// EngineRetries is the per-page recognition retry budget.
	EngineRetries int
	// EngineOptions are passed through to every recognition call.
	EngineOptions engine.Options
}

// Processor executes one claimed job at a time. A single Processor is shared
// by all worker loops in the process; it holds no per-job state.
type Processor struct {
	jobs       core.JobStore
	documents  core.DocumentStore
	engine     engine.Engine
	rasterizer raster.Rasterizer
	logger     *slog.Logger
	metrics    statsd.Sink

	dpi             int
	pageConcurrency int64
	format          Format
	pageOpts        pipeline.PageOptions
}

// New validates opts and constructs a Processor.
func New(opts Options) (*Processor, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Documents == nil {
		return nil, errors.New("document store is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if opts.Rasterizer == nil {
		return nil, errors.New("rasterizer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}
	concurrency := opts.PageConcurrency
	if concurrency <= 0 {
		concurrency = defaultPageConcurrency
	}
	format := opts.OutputFormat
	if format == "" {
		format = FormatClean
	}
	if !format.Valid() {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &Processor{
		jobs:            opts.Jobs,
		documents:       opts.Documents,
		engine:          opts.Engine,
		rasterizer:      opts.Rasterizer,
		logger:          logger,
		metrics:         opts.Metrics,
		dpi:             dpi,
		pageConcurrency: int64(concurrency),
		format:          format,
		pageOpts: pipeline.PageOptions{
			Engine:          opts.EngineOptions,
			ConfidenceFloor: opts.ConfidenceFloor,
			EngineRetries:   opts.EngineRetries,
			IncludeRaw:      format == FormatVerbose,
		},
	}, nil
}

// Process runs job to a terminal outcome. Status transitions are handled
// here, including failure; the returned error reports store-level problems
// the caller can only log, never a signal to re-finalize the job.
func (p *Processor) Process(ctx context.Context, job *model.Job) error {
	start := time.Now()
	log := p.logger.With("job_id", job.ID, "document_key", job.DocumentKey, "attempt", job.AttemptCount)

	ok, err := p.jobs.MarkProcessing(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if !ok {
		log.WarnContext(ctx, "job no longer claimed, skipping")
		metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{Transition: "processing", Result: metrics.ResultSkipped})
		return nil
	}

	resultKey := storage.ResultKey(job.OwnerID, job.ID)

	// A reclaimed job may have died between a successful result write and
	// mark_succeeded. Probe for the artifact before re-running recognition.
	if job.Retried() {
		if done, err := p.resume(ctx, job, resultKey, log); done || err != nil {
			return err
		}
	}

	doc, err := p.documents.Fetch(ctx, job.DocumentKey)
	if err != nil {
		return p.failJob(ctx, job, start, model.NewFatalJobError("fetch document", err), log)
	}

	pageCount, err := p.rasterizer.PageCount(ctx, doc)
	if err != nil {
		return p.failJob(ctx, job, start, model.NewFatalJobError("determine page count", err), log)
	}
	if pageCount < 1 {
		return p.failJob(ctx, job, start, model.NewFatalJobError("document has no pages", nil), log)
	}
	log.InfoContext(ctx, "processing document", "pages", pageCount)

	pages, pageErrs := p.processPages(ctx, doc, pageCount, log)
	if len(pageErrs) == pageCount {
		return p.failJob(ctx, job, start, model.NewFatalJobError("all pages failed", errors.Join(pageErrs...)), log)
	}

	payload, err := p.assemble(job, pages, pageErrs, pageCount, start)
	if err != nil {
		return p.failJob(ctx, job, start, model.NewFatalJobError("assemble result", err), log)
	}

	if err := p.documents.Put(ctx, resultKey, payload, "application/json"); err != nil {
		// The recognition work is done and a blind retry would waste it.
		// Leave the job in processing for the staleness reaper to recover.
		log.ErrorContext(ctx, "persist result failed, leaving job for recovery", "result_key", resultKey, "error", err)
		metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
			Transition: "persisting",
			Result:     metrics.ResultError,
			Duration:   time.Since(start),
			Err:        err,
		})
		return fmt.Errorf("persist result: %w", err)
	}

	ok, err = p.jobs.MarkSucceeded(ctx, job.ID, resultKey)
	if err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	if !ok {
		log.WarnContext(ctx, "job left processing state before completion", "result_key", resultKey)
		return nil
	}

	log.InfoContext(ctx, "job succeeded",
		"result_key", resultKey,
		"pages", pageCount,
		"failed_pages", len(pageErrs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
		Transition: "succeeded",
		Result:     metrics.ResultSuccess,
		Duration:   time.Since(start),
	})
	return nil
}

// resume re-marks a reclaimed job succeeded when its result artifact is
// already present. Returns done=true when the job was finalized here.
func (p *Processor) resume(ctx context.Context, job *model.Job, resultKey string, log *slog.Logger) (bool, error) {
	exists, err := p.documents.Exists(ctx, resultKey)
	if err != nil {
		// Probe failure is not worth failing the job over; fall through to
		// a full re-run.
		log.WarnContext(ctx, "result probe failed, re-running recognition", "result_key", resultKey, "error", err)
		return false, nil
	}
	if !exists {
		return false, nil
	}
	ok, err := p.jobs.MarkSucceeded(ctx, job.ID, resultKey)
	if err != nil {
		return true, fmt.Errorf("mark succeeded on resume: %w", err)
	}
	if ok {
		log.InfoContext(ctx, "resumed job from existing result", "result_key", resultKey)
		metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{Transition: "resumed", Result: metrics.ResultSuccess})
	}
	return true, nil
}

// processPages renders and recognizes every page with bounded concurrency.
// Page failures are collected as PageErrors and never abort the job.
func (p *Processor) processPages(ctx context.Context, doc []byte, pageCount int, log *slog.Logger) ([]model.PageResult, []error) {
	sem := semaphore.NewWeighted(p.pageConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]model.PageResult, 0, pageCount)
	var pageErrs []error

	for page := 1; page <= pageCount; page++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			pageErrs = append(pageErrs, &model.PageError{Page: page, Err: err})
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			defer sem.Release(1)

			pageStart := time.Now()
			res, err := p.processPage(ctx, doc, page)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WarnContext(ctx, "page failed", "page", page, "error", err)
				pageErrs = append(pageErrs, &model.PageError{Page: page, Err: err})
				metrics.EmitPageProcessed(p.metrics, metrics.ResultError, time.Since(pageStart))
				return
			}
			results = append(results, res)
			metrics.EmitPageProcessed(p.metrics, metrics.ResultSuccess, time.Since(pageStart))
		}(page)
	}
	wg.Wait()
	return results, pageErrs
}

func (p *Processor) processPage(ctx context.Context, doc []byte, page int) (model.PageResult, error) {
	img, err := p.rasterizer.RenderPage(ctx, doc, page, p.dpi)
	if err != nil {
		return model.PageResult{}, err
	}
	return pipeline.ProcessPage(ctx, p.engine, img, page, p.pageOpts)
}

// assemble builds and serializes the DocumentResult in deterministic page
// order.
func (p *Processor) assemble(job *model.Job, pages []model.PageResult, pageErrs []error, pageCount int, start time.Time) ([]byte, error) {
	model.SortPages(pages)
	failedPages := failedPageNumbers(pageErrs)

	result := model.DocumentResult{
		OwnerID: job.OwnerID,
		Pages:   pages,
		Metadata: model.ResultMetadata{
			EngineName:       p.engine.Name(),
			EngineVersion:    p.engine.Version(),
			ProcessingTimeMS: time.Since(start).Milliseconds(),
			TotalPages:       pageCount,
			FailedPages:      failedPages,
		},
		Quality: model.ClassifyQuality(pages, failedPages),
	}
	return json.Marshal(result)
}

// failJob transitions job to failed with last_error populated. Fatal job
// errors are terminal; re-processing requires an explicit reset to pending.
func (p *Processor) failJob(ctx context.Context, job *model.Job, start time.Time, cause error, log *slog.Logger) error {
	log.ErrorContext(ctx, "job failed", "error", cause)
	metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
		Transition: "failed",
		Result:     metrics.ResultError,
		Duration:   time.Since(start),
		Err:        cause,
	})
	ok, err := p.jobs.MarkFailed(ctx, job.ID, cause.Error())
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if !ok {
		log.WarnContext(ctx, "job left claimed/processing state before failure could be recorded")
	}
	return nil
}

func failedPageNumbers(pageErrs []error) []int {
	if len(pageErrs) == 0 {
		return nil
	}
	nums := make([]int, 0, len(pageErrs))
	for _, err := range pageErrs {
		var pe *model.PageError
		if errors.As(err, &pe) {
			nums = append(nums, pe.Page)
		}
	}
	sort.Ints(nums)
	return nums
}
