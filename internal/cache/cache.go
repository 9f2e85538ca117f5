// Package cache is the read-through cache owned by the query side. Write
// paths never spell raw key names: they call Invalidate with a group and a
// scope ID and the façade deletes the keys that group enumerates.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Invalidation groups. Each write path names the group whose cached reads it
// made stale, plus the scope (product ID, review ID) when applicable.
const (
	GroupReviews    = "reviews"
	GroupProducts   = "products"
	GroupTaxonomies = "taxonomies"
)

// DefaultTTL is the cache expiry used when the config does not override it.
const DefaultTTL = 5 * time.Minute

// Key builders. Only this package and its tests spell key names.

// ReviewListKey caches the approved snapshot set for a product's default
// listing.
func ReviewListKey(productID string) string {
	return "ratings:reviews:product:" + productID
}

// ReviewKey caches a single review with its details.
func ReviewKey(reviewID int64) string {
	return fmt.Sprintf("ratings:review:%d", reviewID)
}

// SummaryKey caches a product's rating summary.
func SummaryKey(productID string) string {
	return "ratings:summary:" + productID
}

// AttributesKey caches the attribute list, optionally scoped to a product.
func AttributesKey(productID string) string {
	if productID == "" {
		return "ratings:attributes"
	}
	return "ratings:attributes:product:" + productID
}

// CharacteristicsKey caches the characteristic list.
func CharacteristicsKey() string {
	return "ratings:characteristics"
}

// attributeScopeIndexKey is a redis set of product IDs that currently have a
// product-scoped attribute list cached. It makes the scoped keys enumerable
// so an unscoped taxonomy invalidation can purge them too.
const attributeScopeIndexKey = "ratings:attributes:scopes"

// Cache is a redis read-through cache with a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a cache façade. A zero ttl falls back to DefaultTTL.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetOrLoad returns the cached value under key, or invokes loader on a miss
// and stores the result with the cache's TTL. Redis failures degrade to a
// direct load; the cache never makes a read fail.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, loader func(context.Context) (T, error)) (T, error) {
	var zero T

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		// A corrupt entry falls through to the loader and gets rewritten.
		c.logger.Warn("discarding corrupt cache entry", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache read failed, loading directly",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	value, err := loader(ctx)
	if err != nil {
		return zero, err
	}

	if data, err := json.Marshal(value); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	return value, nil
}

// Invalidate deletes the keys enumerated for the group. scopeID narrows the
// deletion to one product or review where the group supports it; an empty
// scopeID deletes only the unscoped keys.
func (c *Cache) Invalidate(ctx context.Context, group, scopeID string) error {
	var keys []string

	switch group {
	case GroupReviews:
		if scopeID != "" {
			keys = append(keys, ReviewListKey(scopeID))
		}
	case GroupProducts:
		if scopeID != "" {
			keys = append(keys, SummaryKey(scopeID))
		}
	case GroupTaxonomies:
		keys = append(keys, AttributesKey(""), CharacteristicsKey())
		if scopeID != "" {
			keys = append(keys, AttributesKey(scopeID))
			if err := c.client.SRem(ctx, attributeScopeIndexKey, scopeID).Err(); err != nil {
				c.logger.Warn("failed to trim attribute scope index",
					slog.String("scope", scopeID),
					slog.String("error", err.Error()),
				)
			}
		} else {
			// A global taxonomy change stales every scoped list as well.
			scopes, err := c.client.SMembers(ctx, attributeScopeIndexKey).Result()
			if err != nil {
				return fmt.Errorf("enumerate attribute scopes: %w", err)
			}
			for _, scope := range scopes {
				keys = append(keys, AttributesKey(scope))
			}
			keys = append(keys, attributeScopeIndexKey)
		}
	default:
		return fmt.Errorf("unknown cache group %q", group)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate cache group %s: %w", group, err)
	}

	return nil
}

// TrackAttributeScope records that a product-scoped attribute list was
// cached. Failures are logged, not returned; an untracked scope only means a
// stale entry lives until its TTL.
func (c *Cache) TrackAttributeScope(ctx context.Context, productID string) {
	if productID == "" {
		return
	}
	if err := c.client.SAdd(ctx, attributeScopeIndexKey, productID).Err(); err != nil {
		c.logger.Warn("failed to track attribute scope",
			slog.String("scope", productID),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidateReview deletes the cached detail entry for one review.
func (c *Cache) InvalidateReview(ctx context.Context, reviewID int64) error {
	if err := c.client.Del(ctx, ReviewKey(reviewID)).Err(); err != nil {
		return fmt.Errorf("invalidate review cache: %w", err)
	}
	return nil
}
