package webhooks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	redisHistoryOrderKey = "webhooks:deliveries:order"
	redisHistoryHashKey  = "webhooks:deliveries"
)

// RedisHistory is a HistoryStore backed by Redis, for deployments that run
// more than one dispatcher instance. Records live in a hash keyed by delivery
// ID; a list holds the IDs in insertion order so capacity trimming evicts the
// oldest record first, matching MemoryHistory.
type RedisHistory struct {
	client   *redis.Client
	capacity int
}

// NewRedisHistory creates a Redis-backed delivery history with the given
// capacity (DefaultHistoryCapacity when <= 0)
func NewRedisHistory(client *redis.Client, capacity int) *RedisHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &RedisHistory{client: client, capacity: capacity}
}

// Append records a new delivery, evicting the oldest when over capacity
func (h *RedisHistory) Append(ctx context.Context, d *Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}

	pipe := h.client.TxPipeline()
	pipe.HSet(ctx, redisHistoryHashKey, d.ID, data)
	pipe.RPush(ctx, redisHistoryOrderKey, d.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append delivery: %w", err)
	}

	size, err := h.client.LLen(ctx, redisHistoryOrderKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read history size: %w", err)
	}
	for size > int64(h.capacity) {
		oldest, err := h.client.LPop(ctx, redisHistoryOrderKey).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
		if err := h.client.HDel(ctx, redisHistoryHashKey, oldest).Err(); err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
		size--
	}
	return nil
}

// Update overwrites the stored record. Updating a record that has already
// been evicted is a no-op, as on the in-memory store.
func (h *RedisHistory) Update(ctx context.Context, d *Delivery) error {
	exists, err := h.client.HExists(ctx, redisHistoryHashKey, d.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to check delivery record: %w", err)
	}
	if !exists {
		return nil
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}
	if err := h.client.HSet(ctx, redisHistoryHashKey, d.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to update delivery record: %w", err)
	}
	return nil
}

// List returns deliveries matching the filter, oldest first
func (h *RedisHistory) List(ctx context.Context, filter DeliveryFilter) ([]*Delivery, error) {
	ids, err := h.client.LRange(ctx, redisHistoryOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}

	out := make([]*Delivery, 0, len(ids))
	for _, id := range ids {
		data, err := h.client.HGet(ctx, redisHistoryHashKey, id).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read delivery %s: %w", id, err)
		}

		var d Delivery
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return nil, fmt.Errorf("failed to decode delivery %s: %w", id, err)
		}
		if filter.matches(&d) {
			out = append(out, &d)
		}
	}
	return out, nil
}

// Stats aggregates delivery counts by status
func (h *RedisHistory) Stats(ctx context.Context) (DeliveryStats, error) {
	all, err := h.List(ctx, DeliveryFilter{})
	if err != nil {
		return DeliveryStats{}, err
	}
	return computeStats(all), nil
}

// Size returns the number of records currently retained
func (h *RedisHistory) Size(ctx context.Context) (int, error) {
	n, err := h.client.LLen(ctx, redisHistoryOrderKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read history size: %w", err)
	}
	return int(n), nil
}
