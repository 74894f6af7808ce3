package testutil

import (
	"testing"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "")
	t.Setenv("TEST_DB_PORT", "")
	t.Setenv("TEST_DB_USER", "")
	t.Setenv("TEST_DB_PASSWORD", "")
	t.Setenv("TEST_DB_NAME", "")

	cfg := DefaultTestDBConfig()

	if cfg.Host != "localhost" {
		t.Errorf("expected default host localhost, got %s", cfg.Host)
	}
	if cfg.Port != "55432" {
		t.Errorf("expected default port 55432, got %s", cfg.Port)
	}
	if cfg.User != "ocrworker" {
		t.Errorf("expected default user ocrworker, got %s", cfg.User)
	}
	if cfg.Password != "ocrworker" {
		t.Errorf("expected default password ocrworker, got %s", cfg.Password)
	}
	if cfg.DBName != "ocrworker" {
		t.Errorf("expected default db name ocrworker, got %s", cfg.DBName)
	}
}

func TestDefaultTestDBConfigOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "5432")

	cfg := DefaultTestDBConfig()

	if cfg.Host != "db.internal" {
		t.Errorf("expected host override db.internal, got %s", cfg.Host)
	}
	if cfg.Port != "5432" {
		t.Errorf("expected port override 5432, got %s", cfg.Port)
	}
}

func TestJobBuilderDefaults(t *testing.T) {
	job := NewJob().Build()

	if job.ID == "" {
		t.Error("expected generated job ID")
	}
	if job.Status != "pending" {
		t.Errorf("expected pending status, got %s", job.Status)
	}
	if job.DocumentKey == "" {
		t.Error("expected default document key")
	}
	if !job.CreatedAt.Equal(TestTime()) {
		t.Errorf("expected CreatedAt=%v, got %v", TestTime(), job.CreatedAt)
	}
}
