package repository

import (
	"context"
	"time"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// StateRepository defines the fast-path state kept in Redis: the snapshot
// read cache and the throttle slot that bounds how often opportunistic
// presence purges are enqueued.
type StateRepository interface {
	// GetSnapshotCache returns the cached snapshot for roomID, or
	// ErrCacheMiss when absent.
	GetSnapshotCache(ctx context.Context, roomID uint) (*domain.WhiteboardSnapshot, error)

	// SetSnapshotCache stores snap for roomID with the given TTL
	// (0 means no expiry).
	SetSnapshotCache(ctx context.Context, roomID uint, snap *domain.WhiteboardSnapshot, ttl time.Duration) error

	// DeleteSnapshotCache drops the cached snapshot for roomID, if any.
	// Used on save so the cache can never pin a snapshot that lost the
	// database commit race; readers repopulate it from the winning row.
	DeleteSnapshotCache(ctx context.Context, roomID uint) error

	// TryAcquirePurgeSlot attempts to claim the global purge throttle for
	// ttl. Returns true when claimed; false means a purge was scheduled
	// recently and the caller should skip enqueueing another.
	TryAcquirePurgeSlot(ctx context.Context, ttl time.Duration) (bool, error)
}
