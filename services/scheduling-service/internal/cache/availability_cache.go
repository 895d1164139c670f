// Package cache layers Redis in front of the availability store. Declared
// sets are read far more often than they change (every slot lookup reads
// one), so misses populate the cache and writes invalidate the exact key.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/engine"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

const DefaultTTL = 5 * time.Minute

type AvailabilityCache struct {
	store  engine.AvailabilityStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewAvailabilityCache(store engine.AvailabilityStore, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *AvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AvailabilityCache{store: store, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(businessID, providerID string, date model.Date) string {
	return fmt.Sprintf("avail:%s:%s:%s", businessID, providerID, date)
}

// Set writes through to the store first, then drops the cached key. Ordering
// matters: invalidating before the store write could let a stale read repopulate
// the cache with the old set.
func (c *AvailabilityCache) Set(ctx context.Context, businessID, providerID string, date model.Date, slots []model.TimeOfDay) error {
	if err := c.store.Set(ctx, businessID, providerID, date, slots); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, cacheKey(businessID, providerID, date)).Err(); err != nil {
		// Stale entries age out via TTL; the write itself is durable.
		c.logger.Warn("availability cache invalidation failed", "err", err)
	}
	return nil
}

func (c *AvailabilityCache) Get(ctx context.Context, businessID, providerID string, date model.Date) ([]model.TimeOfDay, error) {
	key := cacheKey(businessID, providerID, date)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var slots []model.TimeOfDay
		if err := json.Unmarshal(raw, &slots); err == nil {
			return slots, nil
		}
		// Corrupt entry: fall through to the store and overwrite it.
	} else if err != redis.Nil {
		c.logger.Warn("availability cache read failed", "err", err)
	}

	slots, err := c.store.Get(ctx, businessID, providerID, date)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(slots)
	if err == nil {
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("availability cache fill failed", "err", err)
		}
	}
	return slots, nil
}
