package config

import (
	"strings"
	"time"
)

// StorageConfig contains S3-compatible object storage configuration. Leave
// Endpoint empty for AWS; set it for MinIO or another S3-compatible store.
type StorageConfig struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION"            envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"          envDefault:""`
	AccessKey string `env:"ACCESS_KEY_ID"     envDefault:""`
	SecretKey string `env:"SECRET_ACCESS_KEY" envDefault:""`

	// Timeout bounds each storage call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	s.Bucket = strings.TrimSpace(s.Bucket)
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}
}
