package repository

import (
	"context"
	"time"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// PresenceRepository defines storage for per-session liveness records.
type PresenceRepository interface {
	// Upsert inserts or refreshes the record identified by
	// (UserID, RoomID, SessionToken). Must be atomic: two concurrent
	// touches from the same session leave exactly one row.
	Upsert(ctx context.Context, rec *domain.PresenceRecord) error

	// ListOnline returns records in roomID marked online with activity at
	// or after activeSince. May contain several rows per user (one per
	// browser session); the caller deduplicates.
	ListOnline(ctx context.Context, roomID uint, activeSince time.Time) ([]domain.PresenceRecord, error)

	// DeleteStale removes every record, across all rooms, whose last
	// activity is strictly before cutoff. Returns the number removed.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
