package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemoryProductCache is a process-local product cache. It is the fallback
// when Redis is unavailable and is only coherent for a single instance.
type InMemoryProductCache struct {
	products sync.Map // map[string]*cacheEntry[catalog.Product]
	ttl      time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopped  int32

	hits   int64
	misses int64
}

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryProductCacheOption is a functional option for configuring the cache
type InMemoryProductCacheOption func(*InMemoryProductCache)

// WithInMemoryTTL sets how long entries live
func WithInMemoryTTL(ttl time.Duration) InMemoryProductCacheOption {
	return func(c *InMemoryProductCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryProductCacheOption {
	return func(c *InMemoryProductCache) {
		c.logger = logger
	}
}

// NewInMemoryProductCache creates a new in-memory product cache
func NewInMemoryProductCache(opts ...InMemoryProductCacheOption) *InMemoryProductCache {
	cache := &InMemoryProductCache{
		ttl:    defaultProductTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// Get returns a copy of the cached product, or nil on a miss
func (c *InMemoryProductCache) Get(ctx context.Context, sku string) (*catalog.Product, error) {
	if value, ok := c.products.Load(sku); ok {
		entry := value.(*cacheEntry[catalog.Product])
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			product := *entry.value
			return &product, nil
		}
		c.products.Delete(sku)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a copy of the product under its SKU
func (c *InMemoryProductCache) Set(ctx context.Context, product *catalog.Product) error {
	if product == nil {
		return nil
	}
	stored := *product
	c.products.Store(product.SKU, &cacheEntry[catalog.Product]{
		value:     &stored,
		expiresAt: time.Now().Add(c.ttl),
	})
	return nil
}

// Invalidate drops the given SKUs
func (c *InMemoryProductCache) Invalidate(ctx context.Context, skus ...string) error {
	for _, sku := range skus {
		c.products.Delete(sku)
	}
	if len(skus) > 0 {
		c.logger.Debug("Invalidated cached products", zap.String("skus", strings.Join(skus, ",")))
	}
	return nil
}

// InvalidateAll drops every entry
func (c *InMemoryProductCache) InvalidateAll(ctx context.Context) error {
	c.products.Range(func(key, _ any) bool {
		c.products.Delete(key)
		return true
	})
	c.logger.Debug("Flushed product cache")
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryProductCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache hit/miss statistics
func (c *InMemoryProductCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries, expired ones included
func (c *InMemoryProductCache) Count() int {
	n := 0
	c.products.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *InMemoryProductCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache cleanup", zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

func (c *InMemoryProductCache) doCleanup() {
	removed := 0
	c.products.Range(func(key, value any) bool {
		if value.(*cacheEntry[catalog.Product]).isExpired() {
			c.products.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Cleaned up expired product entries", zap.Int("removed", removed))
	}
}
