package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/lab-scheduler-api/pkg/errors"
)

// Cache key namespaces. Mutations invalidate the whole namespace.
const (
	labCachePrefix      = "labs:"
	scheduleCachePrefix = "schedules:"
)

// Generation counters live outside the namespaces they version so pattern
// deletes never reset them.
const generationKeyPrefix = "gen:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService wraps the cache backend with hit/miss metrics. A nil or
// disabled service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get loads key into dest and reports whether the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	elapsed := time.Since(start)
	if err == nil {
		s.metrics.RecordCacheOperation(true, elapsed)
		return true, nil
	}
	s.metrics.RecordCacheOperation(false, elapsed)
	if errors.Is(err, appErrors.ErrCacheMiss) {
		return false, nil
	}
	s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	return false, err
}

// Set stores value under key. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes every entry matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// Generation returns the current generation of namespace for readers to embed
// in their keys. ok is false when the cache must be bypassed for this read.
func (s *CacheService) Generation(ctx context.Context, namespace string) (gen int64, ok bool) {
	if !s.Enabled() {
		return 0, false
	}
	err := s.repo.Get(ctx, generationKeyPrefix+namespace, &gen)
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, appErrors.ErrCacheMiss):
		return 0, true
	default:
		s.logger.Warn("cache generation read failed", zap.String("namespace", namespace), zap.Error(err))
		return 0, false
	}
}

// InvalidateNamespace advances the generation of namespace and then drops its
// keys. A fill that read the database before the advance is stored under the
// previous generation and never served.
func (s *CacheService) InvalidateNamespace(ctx context.Context, namespace string) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.repo.Incr(ctx, generationKeyPrefix+namespace); err != nil {
		s.logger.Warn("cache generation bump failed", zap.String("namespace", namespace), zap.Error(err))
		return err
	}
	return s.Invalidate(ctx, namespace+"*")
}
