// File: services/availability/cache.go
package availability

import (
	"context"
	"encoding/json"
	"time"

	"goodfoods/models"
	"goodfoods/utils"

	"github.com/go-redis/redis/v8"
)

// SlotCache is the read-optimized copy of availability slots. It is never
// the source of truth for a commit decision; commits re-read the
// authoritative store under the slot lock.
type SlotCache interface {
	Get(ctx context.Context, key string) (*models.AvailabilitySlot, bool, error)
	Set(ctx context.Context, key string, slot *models.AvailabilitySlot) error
	Invalidate(ctx context.Context, keys ...string) error
}

// RedisSlotCache stores slots as JSON with a TTL equal to the staleness
// bound. An expired entry is a miss, which forces a synchronous refresh
// from the authoritative store, so a read can never be served data older
// than the bound.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotCache creates a slot cache with the given staleness bound.
func NewRedisSlotCache(client *redis.Client, stalenessBound time.Duration) *RedisSlotCache {
	return &RedisSlotCache{client: client, ttl: stalenessBound}
}

func (c *RedisSlotCache) Get(ctx context.Context, key string) (*models.AvailabilitySlot, bool, error) {
	data, err := c.client.Get(ctx, utils.AvailabilityCachePrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var slot models.AvailabilitySlot
	if err := json.Unmarshal([]byte(data), &slot); err != nil {
		return nil, false, err
	}
	return &slot, true, nil
}

func (c *RedisSlotCache) Set(ctx context.Context, key string, slot *models.AvailabilitySlot) error {
	b, err := json.Marshal(slot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, utils.AvailabilityCachePrefix+key, b, c.ttl).Err()
}

func (c *RedisSlotCache) Invalidate(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = utils.AvailabilityCachePrefix + k
	}
	return c.client.Del(ctx, full...).Err()
}
