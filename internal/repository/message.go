package repository

import (
	"context"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// MessageRepository defines the append-only chat message store.
type MessageRepository interface {
	// Append persists msg, assigning the next per-room Seq atomically.
	// Seq values are strictly increasing within a room; gaps may appear
	// only when an insert fails.
	Append(ctx context.Context, msg *domain.Message) error

	// FetchSince returns messages with Seq > afterSeq in ascending Seq
	// order, capped at limit. Empty slice if none.
	FetchSince(ctx context.Context, roomID uint, afterSeq uint64, limit int) ([]domain.Message, error)

	// FetchLatest returns the most recent limit messages in ascending Seq
	// order, used for the initial page load.
	FetchLatest(ctx context.Context, roomID uint, limit int) ([]domain.Message, error)
}
