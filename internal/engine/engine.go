// Package engine defines the opaque text-recognition capability consumed by
// the page pipeline. Implementations own any one-time model initialization
// per worker process and are otherwise stateless from the processor's point
// of view.
package engine

import (
	"context"
	"image"

	"github.com/pageforge/ocrworker/internal/domain/model"
)

// Region is one detected text region: raw text, a confidence in [0,1], and a
// quadrilateral bounding box in pixel coordinates.
type Region struct {
	Text       string
	Confidence float64
	Box        model.BBox
}

// Options are pass-through tuning knobs for a recognition call.
type Options struct {
	// DetectionThreshold discards regions the engine scores below this
	// confidence. Zero keeps everything.
	DetectionThreshold float64
	// RecognitionBatchSize sizes the engine's internal client/worker pool.
	RecognitionBatchSize int
	// MaxImageSide downscales images whose longest side exceeds this many
	// pixels before recognition. Zero disables scaling.
	MaxImageSide int
	// Language hints the trained model to use (e.g. "eng", "fra").
	Language string
}

// Engine is the recognition capability: one page image in, detected text
// regions out. Implementations must be safe for concurrent use; the
// processor fans pages out to a bounded number of simultaneous calls.
type Engine interface {
	// Name identifies the engine for result metadata.
	Name() string
	// Version identifies the engine build for result metadata. Downstream
	// consumers key output-format compatibility off this value.
	Version() string
	// Warmup performs any one-time model initialization. Called once at
	// worker-process startup, never per job.
	Warmup(ctx context.Context) error
	// DetectAndRecognize runs detection and recognition over img.
	DetectAndRecognize(ctx context.Context, img image.Image, opts Options) ([]Region, error)
	// Close releases engine resources at worker-process shutdown.
	Close() error
}
