package config

// EngineConfig contains recognition engine configuration. These values are
// passed through to the engine on every call.
type EngineConfig struct {
	// Language hints the trained model to use (Tesseract language code).
	Language string `env:"OCR_LANGUAGE" envDefault:"eng"`

	// DetectionThreshold discards regions the engine scores below this
	// confidence before any downstream filtering.
	DetectionThreshold float64 `env:"OCR_DETECTION_THRESHOLD" envDefault:"0.3"`

	// RecognitionBatchSize sizes the engine's native client pool. Should be
	// at least the page concurrency to avoid client churn under fan-out.
	RecognitionBatchSize int `env:"OCR_RECOGNITION_BATCH_SIZE" envDefault:"2"`

	// MaxImageSide downscales page images whose longest side exceeds this
	// many pixels. Zero disables scaling.
	MaxImageSide int `env:"OCR_MAX_IMAGE_SIDE" envDefault:"2500"`

	// PageRetries is how many extra recognition attempts a page gets after
	// an engine failure.
	PageRetries int `env:"OCR_PAGE_RETRIES" envDefault:"2"`
}

// Sanitize applies guardrails to engine configuration values.
func (e *EngineConfig) Sanitize() {
	if e.Language == "" {
		e.Language = "eng"
	}
	if e.DetectionThreshold < 0 {
		e.DetectionThreshold = 0
	}
	if e.DetectionThreshold > 1 {
		e.DetectionThreshold = 1
	}
	if e.RecognitionBatchSize < 1 {
		e.RecognitionBatchSize = 1
	}
	if e.MaxImageSide < 0 {
		e.MaxImageSide = 0
	}
	if e.PageRetries < 0 {
		e.PageRetries = 0
	}
}
