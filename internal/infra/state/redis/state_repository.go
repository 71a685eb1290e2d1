package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/repository"
)

// RedisStateRepository is the Redis implementation of StateRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository creates a RedisStateRepository instance.
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cl:" // classroom-live
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStateRepository) snapshotCacheKey(roomID uint) string {
	return fmt.Sprintf("%sroom:%d:whiteboard", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) purgeSlotKey() string {
	return r.keyPrefix + "presence:purge_slot"
}

// GetSnapshotCache returns the cached whiteboard snapshot for a room.
func (r *RedisStateRepository) GetSnapshotCache(ctx context.Context, roomID uint) (*domain.WhiteboardSnapshot, error) {
	key := r.snapshotCacheKey(roomID)
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis: get snapshot cache for room %d from %s: %w", roomID, key, err)
	}
	var snap domain.WhiteboardSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// Corrupt cache entry; treat as a miss so the DB copy wins.
		return nil, repository.ErrCacheMiss
	}
	return &snap, nil
}

// SetSnapshotCache stores the snapshot for a room with the given TTL.
func (r *RedisStateRepository) SetSnapshotCache(ctx context.Context, roomID uint, snap *domain.WhiteboardSnapshot, ttl time.Duration) error {
	key := r.snapshotCacheKey(roomID)
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot for room %d: %w", roomID, err)
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot cache for room %d on %s: %w", roomID, key, err)
	}
	return nil
}

// DeleteSnapshotCache drops the cached snapshot for a room.
func (r *RedisStateRepository) DeleteSnapshotCache(ctx context.Context, roomID uint) error {
	key := r.snapshotCacheKey(roomID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: delete snapshot cache for room %d on %s: %w", roomID, key, err)
	}
	return nil
}

// TryAcquirePurgeSlot claims the purge throttle with SET NX. The key's TTL
// is the minimum spacing between scheduled purges.
func (r *RedisStateRepository) TryAcquirePurgeSlot(ctx context.Context, ttl time.Duration) (bool, error) {
	key := r.purgeSlotKey()
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire purge slot on %s: %w", key, err)
	}
	return ok, nil
}
