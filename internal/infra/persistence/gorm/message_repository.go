package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/repository"
)

// appendRetries bounds how often Append retries after losing a seq race to
// a concurrent insert in the same room.
const appendRetries = 3

// GormMessageRepository is the GORM implementation of MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a GormMessageRepository instance.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Append assigns the next per-room seq and inserts the message in one
// transaction. The max-seq read takes a row lock; the unique
// (room_id, seq) index backs the strictly-increasing invariant, and a
// duplicate-key loss against a concurrent writer is retried.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxSeq uint64
			err := tx.Model(&domain.Message{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("room_id = ?", msg.RoomID).
				Select("COALESCE(MAX(seq), 0)").
				Scan(&maxSeq).Error
			if err != nil {
				return fmt.Errorf("read max seq: %w", err)
			}
			msg.Seq = maxSeq + 1
			return tx.Create(msg).Error
		})
		if err == nil {
			return nil
		}
		if isDuplicateEntryError(err) {
			// Lost the race for this seq, try again with a fresh read.
			msg.ID = 0
			lastErr = repository.ErrDuplicateEntry
			continue
		}
		return fmt.Errorf("gorm: append message (room %d): %w", msg.RoomID, err)
	}
	return fmt.Errorf("gorm: append message (room %d) after %d attempts: %w", msg.RoomID, appendRetries, lastErr)
}

// FetchSince implements incremental retrieval of messages newer than
// afterSeq, ascending.
func (r *GormMessageRepository) FetchSince(ctx context.Context, roomID uint, afterSeq uint64, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND seq > ?", roomID, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: fetch messages since %d (room %d): %w", afterSeq, roomID, err)
	}
	return msgs, nil
}

// FetchLatest returns the newest limit messages, re-sorted ascending for
// rendering order.
func (r *GormMessageRepository) FetchLatest(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("seq DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: fetch latest messages (room %d): %w", roomID, err)
	}
	// Reverse the DESC page into ascending seq order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// isDuplicateEntryError reports whether err is a MySQL unique-constraint
// violation (error 1062).
func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
