package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// GormPresenceRepository is the GORM implementation of PresenceRepository.
type GormPresenceRepository struct {
	db *gorm.DB
}

// NewGormPresenceRepository creates a GormPresenceRepository instance.
func NewGormPresenceRepository(db *gorm.DB) *GormPresenceRepository {
	if db == nil {
		panic("database connection cannot be nil for GormPresenceRepository")
	}
	return &GormPresenceRepository{db: db}
}

// Upsert refreshes the record for (user, room, session token) via an
// INSERT ... ON DUPLICATE KEY UPDATE against the idx_presence_identity
// unique index. The single statement keeps concurrent touches from the
// same browser session from ever creating duplicate rows.
func (r *GormPresenceRepository) Upsert(ctx context.Context, rec *domain.PresenceRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "room_id"}, {Name: "session_token"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "role", "last_activity_at", "is_online",
			}),
		}).
		Create(rec).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert presence (user %d, room %d): %w", rec.UserID, rec.RoomID, err)
	}
	return nil
}

// ListOnline returns the raw online rows for a room; deduplication by user
// is the service's concern.
func (r *GormPresenceRepository) ListOnline(ctx context.Context, roomID uint, activeSince time.Time) ([]domain.PresenceRecord, error) {
	var recs []domain.PresenceRecord
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_online = ? AND last_activity_at >= ?", roomID, true, activeSince).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list online presence (room %d): %w", roomID, err)
	}
	return recs, nil
}

// DeleteStale removes records idle since before cutoff, across all rooms.
func (r *GormPresenceRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_activity_at < ?", cutoff).
		Delete(&domain.PresenceRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete stale presence before %v: %w", cutoff, result.Error)
	}
	return result.RowsAffected, nil
}
