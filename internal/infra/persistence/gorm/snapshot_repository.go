package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/repository"
)

// GormSnapshotRepository is the GORM implementation of SnapshotRepository.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a GormSnapshotRepository instance.
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	if db == nil {
		panic("database connection cannot be nil for GormSnapshotRepository")
	}
	return &GormSnapshotRepository{db: db}
}

// Upsert overwrites the room's single snapshot row in one statement.
// Two near-simultaneous teacher saves cannot interleave into a partial
// write: each statement replaces the whole row, last commit wins.
func (r *GormSnapshotRepository) Upsert(ctx context.Context, snap *domain.WhiteboardSnapshot) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"author_teacher_id", "title", "image_data", "is_active", "updated_at",
			}),
		}).
		Create(snap).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert whiteboard snapshot (room %d): %w", snap.RoomID, err)
	}
	return nil
}

// GetByRoom returns the live snapshot for roomID.
func (r *GormSnapshotRepository) GetByRoom(ctx context.Context, roomID uint) (*domain.WhiteboardSnapshot, error) {
	var snap domain.WhiteboardSnapshot
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("gorm: get whiteboard snapshot (room %d): %w", roomID, err)
	}
	return &snap, nil
}
