// Package storage provides object-storage adapters for source documents and
// result artifacts.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pageforge/ocrworker/internal/domain/model"
)

// ErrObjectNotFound is returned when no object exists at the requested key.
var ErrObjectNotFound = errors.New("object not found")

// S3Config describes how to reach the object store.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the S3 endpoint for S3-compatible stores (MinIO,
	// localstack). Empty means AWS.
	Endpoint string
	// Timeout bounds every individual store call.
	Timeout time.Duration
}

// S3Store implements core.DocumentStore backed by S3 (or an S3-compatible
// object store).
type S3Store struct {
	client  *s3.Client
	bucket  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewS3Store builds an S3-backed document store.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		timeout: timeout,
		logger:  logger.With("component", "s3_store"),
	}, nil
}

// Fetch retrieves the raw bytes stored at key. A missing object surfaces as
// ErrObjectNotFound; transport failures are wrapped as retryable
// infrastructure errors.
func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("fetch %s: %w", key, ErrObjectNotFound)
		}
		return nil, model.NewInfrastructureError("fetch "+key, err)
	}
	defer func() {
		if cerr := out.Body.Close(); cerr != nil {
			s.logger.DebugContext(ctx, "close object body", "key", key, "error", cerr)
		}
	}()

	blob, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, model.NewInfrastructureError("read "+key, err)
	}
	return blob, nil
}

// Put writes blob at key, overwriting any previous object. Overwrites are the
// idempotency mechanism for result persistence: retrying a persist lands on
// the same key.
func (s *S3Store) Put(ctx context.Context, key string, blob []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return model.NewInfrastructureError("put "+key, err)
	}

	s.logger.DebugContext(ctx, "object written", "key", key, "bytes", len(blob))
	return nil
}

// Exists reports whether an object is present at key.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, model.NewInfrastructureError("head "+key, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
