package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeWorker runs the OCR worker pool.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the staleness reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeWorker, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: worker, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains worker pool configuration.
type WorkerConfig struct {
	// Concurrency is the number of claim loops running in this process.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"4"`

	// PageConcurrency bounds how many pages of one job are recognized at once.
	PageConcurrency int `env:"WORKER_PAGE_CONCURRENCY" envDefault:"2"`

	// PollInterval is how long an idle loop sleeps when no jobs are pending.
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"5s"`

	// IDPrefix prefixes each loop's worker identity; defaults to the hostname.
	IDPrefix string `env:"WORKER_ID_PREFIX" envDefault:""`

	// RenderDPI is the rasterization resolution.
	RenderDPI int `env:"WORKER_RENDER_DPI" envDefault:"150"`

	// OutputFormat selects the persisted result shape: clean or verbose.
	OutputFormat string `env:"OUTPUT_FORMAT" envDefault:"clean"`

	// ConfidenceFloor discards recognized regions scoring below it.
	ConfidenceFloor float64 `env:"WORKER_CONFIDENCE_FLOOR" envDefault:"0"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.PageConcurrency < 1 {
		w.PageConcurrency = 1
	}
	if w.PollInterval <= 0 {
		w.PollInterval = 5 * time.Second
	}
	if w.RenderDPI < 72 {
		w.RenderDPI = 150
	}
	if w.OutputFormat == "" {
		w.OutputFormat = "clean"
	}
	if w.ConfidenceFloor < 0 {
		w.ConfidenceFloor = 0
	}
	if w.ConfidenceFloor > 1 {
		w.ConfidenceFloor = 1
	}
}

// ReaperConfig contains staleness reaper configuration.
type ReaperConfig struct {
	// Interval between recovery passes.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	// StaleThreshold is how long a job may sit in claimed/processing before
	// being returned to pending. Must comfortably exceed the longest
	// expected document processing time.
	StaleThreshold time.Duration `env:"REAPER_STALE_THRESHOLD" envDefault:"10m"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval <= 0 {
		r.Interval = time.Minute
	}
	if r.StaleThreshold < time.Minute {
		r.StaleThreshold = 10 * time.Minute
	}
}
