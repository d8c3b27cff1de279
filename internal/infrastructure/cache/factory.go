package cache

import (
	"context"
	"fmt"
	"time"

	appcatalog "github.com/dbcb2b/backend/internal/application/catalog"
	"github.com/dbcb2b/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ProductCacheFactory creates product caches based on configuration
type ProductCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ProductCacheFactoryOption is a functional option for configuring the factory
type ProductCacheFactoryOption func(*ProductCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ProductCacheFactoryOption {
	return func(f *ProductCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ProductCacheFactoryOption {
	return func(f *ProductCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewProductCacheFactory creates a new factory
func NewProductCacheFactory(cfg config.RedisConfig, ttl time.Duration, opts ...ProductCacheFactoryOption) *ProductCacheFactory {
	f := &ProductCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed product cache
func (f *ProductCacheFactory) CreateRedisCache() (*RedisProductCache, error) {
	cache, err := NewRedisProductCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis product cache: %w", err)
	}
	return cache, nil
}

// CreateInMemoryCache creates a process-local product cache
func (f *ProductCacheFactory) CreateInMemoryCache() *InMemoryProductCache {
	return NewInMemoryProductCache(WithInMemoryTTL(f.ttl), WithInMemoryLogger(f.logger))
}

// CreateCache returns a Redis cache when Redis is enabled and reachable,
// otherwise an in-memory cache if fallback is allowed. The returned close
// function releases the underlying resources.
func (f *ProductCacheFactory) CreateCache() (appcatalog.ProductCache, func() error, error) {
	if f.redisConfig.Enabled {
		cache, err := f.CreateRedisCache()
		if err == nil {
			f.logger.Info("using Redis product cache", zap.String("addr", f.redisConfig.Addr()))
			return cache, cache.Close, nil
		}
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("Redis required for product cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory product cache. "+
			"Invalidations will not propagate across instances.",
			zap.Error(err),
		)
	}
	cache := f.CreateInMemoryCache()
	return cache, cache.Close, nil
}

// Pinger is implemented by caches with a remote backend
type Pinger interface {
	Ping(ctx context.Context) error
}
