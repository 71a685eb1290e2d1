package repository

import (
	"context"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// SnapshotRepository defines persistence for whiteboard snapshots.
type SnapshotRepository interface {
	// Upsert saves snap as the single live snapshot for snap.RoomID,
	// overwriting any existing row for that room in one atomic statement
	// (last write wins by commit order).
	Upsert(ctx context.Context, snap *domain.WhiteboardSnapshot) error

	// GetByRoom returns the live snapshot for roomID, or
	// ErrSnapshotNotFound if the room has never been drawn on.
	GetByRoom(ctx context.Context, roomID uint) (*domain.WhiteboardSnapshot, error)
}
