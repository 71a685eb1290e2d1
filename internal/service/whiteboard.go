package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/repository"
)

const (
	// maxImageDataLen bounds the encoded snapshot blob (base64 PNG data
	// URL from a classroom-sized canvas stays well under this).
	maxImageDataLen = 4 << 20

	// snapshotCacheTTL is how long a cached snapshot may serve viewer
	// refreshes before falling back to the database.
	snapshotCacheTTL = time.Hour
)

// WhiteboardService persists and serves the single live snapshot per room.
// Saves come only from teacher clients; each save overwrites the previous
// snapshot wholesale, so concurrent saves resolve by commit order with no
// merging.
type WhiteboardService struct {
	snapRepo  repository.SnapshotRepository
	stateRepo repository.StateRepository
	presence  *PresenceService
}

// NewWhiteboardService creates a WhiteboardService instance. stateRepo may
// be nil, in which case every load goes to the database.
func NewWhiteboardService(snapRepo repository.SnapshotRepository, stateRepo repository.StateRepository, presence *PresenceService) *WhiteboardService {
	if snapRepo == nil {
		panic("SnapshotRepository cannot be nil for WhiteboardService")
	}
	if presence == nil {
		panic("PresenceService cannot be nil for WhiteboardService")
	}
	return &WhiteboardService{snapRepo: snapRepo, stateRepo: stateRepo, presence: presence}
}

// Save upserts the room's snapshot. The handler already verified room
// access; the teacher-role requirement is mirrored here as a defensive
// check since only teacher clients author the board.
func (s *WhiteboardService) Save(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken, title, imageData string) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": user.ID, "room_id": roomID})

	if user.Role != domain.RoleTeacher {
		logCtx.WithField("role", user.Role).Warn("Non-teacher attempted whiteboard save")
		return fmt.Errorf("%w: only the teacher may save the whiteboard", ErrAccessDenied)
	}
	if imageData == "" {
		return fmt.Errorf("%w: image data is empty", ErrValidation)
	}
	if len(imageData) > maxImageDataLen {
		return fmt.Errorf("%w: image data exceeds %d bytes", ErrValidation, maxImageDataLen)
	}

	s.touch(ctx, user, roomID, sessionToken)

	snap := &domain.WhiteboardSnapshot{
		RoomID:          roomID,
		AuthorTeacherID: user.ID,
		Title:           title,
		ImageData:       imageData,
		IsActive:        true,
	}
	if err := s.snapRepo.Upsert(ctx, snap); err != nil {
		logCtx.WithError(err).Error("Failed to upsert whiteboard snapshot")
		return ErrInternalServer
	}

	// Invalidate rather than write through: two racing saves could set
	// the cache in the opposite order of their commits and pin the loser
	// for the whole TTL. The next load repopulates from the winning row.
	if s.stateRepo != nil {
		if err := s.stateRepo.DeleteSnapshotCache(ctx, roomID); err != nil {
			logCtx.WithError(err).Warn("Failed to invalidate whiteboard snapshot cache")
		}
	}
	logCtx.Debug("Whiteboard snapshot saved")
	return nil
}

// Load returns the room's latest snapshot image data, or empty when the
// room has never been drawn on. Cache first, database fallback, backfill.
func (s *WhiteboardService) Load(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken string) (string, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": user.ID, "room_id": roomID})

	s.touch(ctx, user, roomID, sessionToken)

	if s.stateRepo != nil {
		cached, err := s.stateRepo.GetSnapshotCache(ctx, roomID)
		if err == nil {
			return cached.ImageData, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			logCtx.WithError(err).Warn("Failed to read whiteboard snapshot cache")
		}
	}

	snap, err := s.snapRepo.GetByRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			// New room, never drawn on: the client renders a blank canvas.
			return "", nil
		}
		logCtx.WithError(err).Error("Failed to load whiteboard snapshot")
		return "", ErrInternalServer
	}

	if s.stateRepo != nil {
		if err := s.stateRepo.SetSnapshotCache(ctx, roomID, snap, snapshotCacheTTL); err != nil {
			logCtx.WithError(err).Warn("Failed to backfill whiteboard snapshot cache")
		}
	}
	return snap.ImageData, nil
}

func (s *WhiteboardService) touch(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken string) {
	if err := s.presence.Touch(ctx, user, roomID, sessionToken, time.Now()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": user.ID, "room_id": roomID}).
			Warn("Failed to touch presence on whiteboard activity")
	}
}
