package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/service"
)

// ErrMiss is returned by Get when nothing is cached.
var ErrMiss = errors.New("cache miss")

// AvailabilityCache caches storefront availability answers. The store stays
// authoritative; stock writes drop every entry of the product.
type AvailabilityCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewAvailabilityCache creates a new AvailabilityCache.
func NewAvailabilityCache(redis *RedisClient, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{redis: redis, ttl: ttl}
}

// key returns availability:{productId}:{colorId}:{unitId}.
func (c *AvailabilityCache) key(productID, colorID, unitID int) string {
	return fmt.Sprintf("availability:%d:%d:%d", productID, colorID, unitID)
}

// Get returns the cached availability or ErrMiss.
func (c *AvailabilityCache) Get(ctx context.Context, productID, colorID, unitID int) (*service.Availability, error) {
	raw, err := c.redis.Get(ctx, c.key(productID, colorID, unitID))
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var a service.Availability
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal availability: %w", err)
	}
	return &a, nil
}

// Set stores a for the configured TTL.
func (c *AvailabilityCache) Set(ctx context.Context, a *service.Availability) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}
	return c.redis.Set(ctx, c.key(a.ProductID, a.ColorID, a.UnitID), string(data), c.ttl)
}

// InvalidateProduct drops all cached availability of a product. Errors are
// logged; entries expire on their own.
func (c *AvailabilityCache) InvalidateProduct(ctx context.Context, productID int) {
	n, err := c.redis.DeleteByPattern(ctx, fmt.Sprintf("availability:%d:*", productID))
	if err != nil {
		log.Warn().Err(err).Int("product_id", productID).Msg("failed to invalidate availability cache")
		return
	}
	log.Debug().Int("product_id", productID).Int("keys", n).Msg("availability cache invalidated")
}
