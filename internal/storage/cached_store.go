package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/pageforge/ocrworker/internal/core"
)

// CachedStore wraps a DocumentStore with a read-through byte cache. Fetches
// check the cache first so a reclaimed job retried on another worker does not
// re-download the source document. Writes bypass the cache entirely: results
// are write-once and never read back by this system.
type CachedStore struct {
	inner  core.DocumentStore
	cache  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore builds a caching wrapper around inner. A nil cache returns
// inner unchanged.
func NewCachedStore(inner core.DocumentStore, cache core.CacheRepository, ttl time.Duration, logger *slog.Logger) core.DocumentStore {
	if cache == nil {
		return inner
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "cached_store"),
	}
}

const cacheKeyPrefix = "doc:bytes:"

// Fetch returns cached bytes when present, falling back to the inner store.
// Cache failures degrade to a plain fetch; they are logged, never surfaced.
func (s *CachedStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	cacheKey := cacheKeyPrefix + key

	if blob, err := s.cache.Get(ctx, cacheKey); err != nil {
		s.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err)
	} else if blob != nil {
		return blob, nil
	}

	blob, err := s.inner.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	if setErr := s.cache.Set(ctx, cacheKey, blob, s.ttl); setErr != nil {
		s.logger.WarnContext(ctx, "cache set failed", "key", key, "error", setErr)
	}
	return blob, nil
}

// Put delegates to the inner store.
func (s *CachedStore) Put(ctx context.Context, key string, blob []byte, contentType string) error {
	return s.inner.Put(ctx, key, blob, contentType)
}

// Exists delegates to the inner store.
func (s *CachedStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.inner.Exists(ctx, key)
}
