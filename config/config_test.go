package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[ServiceMode]bool
		wantErr bool
	}{
		{
			name:  "worker only",
			input: "worker",
			want:  map[ServiceMode]bool{ServiceModeWorker: true},
		},
		{
			name:  "worker and reaper",
			input: "worker,reaper",
			want:  map[ServiceMode]bool{ServiceModeWorker: true, ServiceModeReaper: true},
		},
		{
			name:  "whitespace tolerated",
			input: " worker , reaper ",
			want:  map[ServiceMode]bool{ServiceModeWorker: true, ServiceModeReaper: true},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unknown service",
			input:   "worker,http",
			wantErr: true,
		},
		{
			name:    "only separators",
			input:   ", ,",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "worker,reaper", cfg.Services)
	assert.True(t, cfg.IsWorkerEnabled())
	assert.True(t, cfg.IsReaperEnabled())

	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 2, cfg.Worker.PageConcurrency)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 150, cfg.Worker.RenderDPI)
	assert.Equal(t, "clean", cfg.Worker.OutputFormat)

	assert.Equal(t, "eng", cfg.Engine.Language)
	assert.InDelta(t, 0.3, cfg.Engine.DetectionThreshold, 0.0001)

	assert.Equal(t, time.Minute, cfg.Reaper.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Reaper.StaleThreshold)

	assert.Equal(t, 60*time.Second, cfg.Storage.Timeout)
	assert.True(t, cfg.Postgres.RunMigrationsOnStart)
}

func TestAppConfigFromEnv(t *testing.T) {
	t.Setenv("SERVICES", "reaper")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("OUTPUT_FORMAT", "verbose")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("S3_BUCKET", "documents")
	t.Setenv("REAPER_STALE_THRESHOLD", "30m")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.False(t, cfg.IsWorkerEnabled())
	assert.True(t, cfg.IsReaperEnabled())
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, "verbose", cfg.Worker.OutputFormat)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "documents", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Minute, cfg.Reaper.StaleThreshold)
}

func TestWorkerConfigSanitize(t *testing.T) {
	w := WorkerConfig{
		Concurrency:     -1,
		PageConcurrency: 0,
		PollInterval:    -time.Second,
		RenderDPI:       10,
		ConfidenceFloor: 1.5,
	}
	w.Sanitize()

	assert.Equal(t, 1, w.Concurrency)
	assert.Equal(t, 1, w.PageConcurrency)
	assert.Equal(t, 5*time.Second, w.PollInterval)
	assert.Equal(t, 150, w.RenderDPI)
	assert.Equal(t, "clean", w.OutputFormat)
	assert.InDelta(t, 1.0, w.ConfidenceFloor, 0.0001)
}

func TestReaperConfigSanitize(t *testing.T) {
	r := ReaperConfig{Interval: 0, StaleThreshold: time.Second}
	r.Sanitize()

	assert.Equal(t, time.Minute, r.Interval)
	assert.Equal(t, 10*time.Minute, r.StaleThreshold)
}

func TestEngineConfigSanitize(t *testing.T) {
	e := EngineConfig{DetectionThreshold: 2, RecognitionBatchSize: 0, MaxImageSide: -5, PageRetries: -1}
	e.Sanitize()

	assert.InDelta(t, 1.0, e.DetectionThreshold, 0.0001)
	assert.Equal(t, 1, e.RecognitionBatchSize)
	assert.Equal(t, 0, e.MaxImageSide)
	assert.Equal(t, 0, e.PageRetries)
	assert.Equal(t, "eng", e.Language)
}

func TestMetricsConfigSanitize(t *testing.T) {
	m := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	m.Sanitize()

	assert.False(t, m.IsEnabled())
}
