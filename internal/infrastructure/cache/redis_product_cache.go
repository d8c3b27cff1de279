package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dbcb2b/backend/internal/domain/catalog"
	"github.com/redis/go-redis/v9"
)

const (
	defaultProductKeyPrefix = "catalog:product:"
	defaultProductTTL       = 5 * time.Minute
	scanBatchSize           = 500
)

// RedisProductCache caches exact-SKU product lookups in Redis so that every
// instance sees the same invalidations
type RedisProductCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisProductCache creates a new Redis-based product cache
func NewRedisProductCache(cfg RedisConfig, ttl time.Duration) (*RedisProductCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisProductCacheWithClient(client, "", ttl), nil
}

// NewRedisProductCacheWithClient creates a cache with an existing Redis client
func NewRedisProductCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisProductCache {
	if keyPrefix == "" {
		keyPrefix = defaultProductKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultProductTTL
	}
	return &RedisProductCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisProductCache) key(sku string) string {
	return c.keyPrefix + sku
}

// Get returns the cached product, or nil on a miss
func (c *RedisProductCache) Get(ctx context.Context, sku string) (*catalog.Product, error) {
	raw, err := c.client.Get(ctx, c.key(sku)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached product: %w", err)
	}

	var product catalog.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		// A stale or foreign payload is treated as a miss and dropped
		_ = c.client.Del(ctx, c.key(sku)).Err()
		return nil, nil
	}
	return &product, nil
}

// Set stores a product under its SKU
func (c *RedisProductCache) Set(ctx context.Context, product *catalog.Product) error {
	if product == nil {
		return nil
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}
	if err := c.client.Set(ctx, c.key(product.SKU), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache product: %w", err)
	}
	return nil
}

// Invalidate drops the given SKUs
func (c *RedisProductCache) Invalidate(ctx context.Context, skus ...string) error {
	if len(skus) == 0 {
		return nil
	}
	keys := make([]string, len(skus))
	for i, sku := range skus {
		keys[i] = c.key(sku)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate products: %w", err)
	}
	return nil
}

// InvalidateAll drops every key under the cache prefix
func (c *RedisProductCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan product cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to flush product cache: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks connectivity for the readiness probe
func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisProductCache) Close() error {
	return c.client.Close()
}
