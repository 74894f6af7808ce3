// Package tesseract adapts the gosseract Tesseract bindings to the engine
// interface. A single Engine instance is shared per worker process; the
// underlying native clients are pooled because creating one loads the trained
// model from disk.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/pageforge/ocrworker/internal/domain/model"
	"github.com/pageforge/ocrworker/internal/engine"
)

const defaultPoolSize = 2

// Engine implements engine.Engine on top of Tesseract via gosseract.
type Engine struct {
	clientFactory func() *gosseract.Client

	mu      sync.Mutex
	idle    []*gosseract.Client
	max     int
	closed  bool
	version string
}

// New constructs a Tesseract-backed engine. poolSize bounds the number of
// native clients kept alive at once; zero uses a small default.
func New(poolSize int) *Engine {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	return &Engine{
		clientFactory: gosseract.NewClient,
		max:           poolSize,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Version reports the linked Tesseract library version, available after
// Warmup. Empty until then.
func (e *Engine) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Warmup creates one client eagerly so the model load happens at process
// startup rather than on the first claimed job.
func (e *Engine) Warmup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := e.clientFactory()
	e.mu.Lock()
	e.version = c.Version()
	e.idle = append(e.idle, c)
	e.mu.Unlock()
	return nil
}

// DetectAndRecognize runs word-level detection and recognition over img and
// returns one region per detected word. Safe for concurrent use.
func (e *Engine) DetectAndRecognize(ctx context.Context, img image.Image, opts engine.Options) ([]engine.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img = downscale(img, opts.MaxImageSide)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}

	c, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer e.release(c)

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, &model.EngineError{Err: fmt.Errorf("set image: %w", err)}
	}
	if opts.Language != "" {
		if err := c.SetLanguage(opts.Language); err != nil {
			return nil, &model.EngineError{Err: fmt.Errorf("set language %q: %w", opts.Language, err)}
		}
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, &model.EngineError{Err: fmt.Errorf("recognize: %w", err)}
	}

	regions := make([]engine.Region, 0, len(boxes))
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		if b.Word == "" || conf < opts.DetectionThreshold {
			continue
		}
		regions = append(regions, engine.Region{
			Text:       b.Word,
			Confidence: conf,
			Box:        rectToQuad(b.Box),
		})
	}
	return regions, nil
}

// Close releases all pooled native clients. Calls after Close fail.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for _, c := range e.idle {
		c.Close()
	}
	e.idle = nil
	return nil
}

func (e *Engine) acquire() (*gosseract.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	if n := len(e.idle); n > 0 {
		c := e.idle[n-1]
		e.idle = e.idle[:n-1]
		return c, nil
	}
	return e.clientFactory(), nil
}

func (e *Engine) release(c *gosseract.Client) {
	e.mu.Lock()
	if e.closed || len(e.idle) >= e.max {
		e.mu.Unlock()
		c.Close()
		return
	}
	e.idle = append(e.idle, c)
	e.mu.Unlock()
}

// rectToQuad converts an axis-aligned rectangle into the four-corner form
// used by result payloads, clockwise from top-left.
func rectToQuad(r image.Rectangle) model.BBox {
	return model.BBox{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
	}
}
