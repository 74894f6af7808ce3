// Package metrics defines the standard metric shapes emitted by the worker
// and reaper so dashboards see one consistent naming scheme.
package metrics

import (
	"time"

	"github.com/pageforge/ocrworker/internal/domain/model"
	obserrors "github.com/pageforge/ocrworker/internal/observability/errors"
	"github.com/pageforge/ocrworker/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Transition string // claimed, processing, succeeded, failed, resumed
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, cloneTags(tags))
	}
}

// EmitPageProcessed records the outcome and duration of one page run.
func EmitPageProcessed(sink statsd.Sink, result string, duration time.Duration) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": result}
	sink.Count("page.processed", 1, tags)
	if duration > 0 {
		sink.Timing("page.duration", duration, cloneTags(tags))
	}
}

// EmitQueueDepth publishes per-status job counts as gauges.
func EmitQueueDepth(sink statsd.Sink, stats model.JobStats) {
	if sink == nil {
		return
	}
	sink.Gauge("queue.pending", float64(stats.Pending), nil)
	sink.Gauge("queue.claimed", float64(stats.Claimed), nil)
	sink.Gauge("queue.processing", float64(stats.Processing), nil)
	sink.Gauge("queue.succeeded", float64(stats.Succeeded), nil)
	sink.Gauge("queue.failed", float64(stats.Failed), nil)
}

// EmitReclaimed records how many stale jobs a reaper pass returned to pending.
func EmitReclaimed(sink statsd.Sink, reclaimed int64) {
	if sink == nil {
		return
	}
	sink.Count("reaper.reclaimed", reclaimed, nil)
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
