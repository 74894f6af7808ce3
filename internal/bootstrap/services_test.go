package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/ocrworker/config"
)

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))

	cfg := &config.AppConfig{Services: "worker,reaper"}
	require.NoError(t, ValidateServiceConfig(cfg))

	cfg.Services = "http"
	require.Error(t, ValidateServiceConfig(cfg))

	cfg.Services = ""
	require.Error(t, ValidateServiceConfig(cfg))
}

func TestRunServicesWithShutdownRequiresConfig(t *testing.T) {
	require.Error(t, RunServicesWithShutdown(nil))
	require.Error(t, RunServicesWithShutdown(&ServiceDeps{}))
}

func TestBuildMetricsSinkDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sink := BuildMetricsSink(logger, config.ObservabilityMetricsConfig{Enabled: false})
	assert.Nil(t, sink)
}

func TestBuildMetricsSinkEnabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sink := BuildMetricsSink(logger, config.ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: "127.0.0.1:8125",
	})
	require.NotNil(t, sink)
	assert.True(t, sink.Enabled())
	require.NoError(t, sink.Close())
}
