package service

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/repository"
)

// purgeSlotTTL is the minimum spacing between opportunistically scheduled
// stale-presence purges. Purge frequency only affects display freshness,
// never the online/stale windows themselves.
const purgeSlotTTL = time.Minute

// PurgeEnqueuer schedules a background stale-presence purge. Implemented
// by the tasks package over the asynq client.
type PurgeEnqueuer interface {
	EnqueuePresencePurge(ctx context.Context) error
}

// PresenceService tracks which users are actively viewing a room. Presence
// is inferred from activity: every chat or whiteboard poll touches it,
// there is no explicit "go online" action.
type PresenceService struct {
	presenceRepo repository.PresenceRepository
	stateRepo    repository.StateRepository
	enqueuer     PurgeEnqueuer
}

// NewPresenceService creates a PresenceService instance. enqueuer may be
// nil; purging then relies solely on the periodic scheduler entry.
func NewPresenceService(presenceRepo repository.PresenceRepository, stateRepo repository.StateRepository, enqueuer PurgeEnqueuer) *PresenceService {
	if presenceRepo == nil {
		panic("PresenceRepository cannot be nil for PresenceService")
	}
	return &PresenceService{
		presenceRepo: presenceRepo,
		stateRepo:    stateRepo,
		enqueuer:     enqueuer,
	}
}

// Touch upserts the caller's liveness record for the room and, when the
// throttle slot is free, schedules a background purge of stale records.
func (s *PresenceService) Touch(ctx context.Context, user domain.CurrentUser, roomID uint, sessionToken string, now time.Time) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": user.ID, "room_id": roomID})

	rec := &domain.PresenceRecord{
		UserID:         user.ID,
		RoomID:         roomID,
		SessionToken:   sessionToken,
		DisplayName:    user.DisplayName,
		Role:           user.Role,
		LastActivityAt: now,
		IsOnline:       true,
	}
	if err := s.presenceRepo.Upsert(ctx, rec); err != nil {
		logCtx.WithError(err).Error("Failed to upsert presence record")
		return ErrInternalServer
	}

	s.schedulePurge(ctx, logCtx)
	return nil
}

// ListOnline returns the room's online users, deduplicated by user id
// (multiple tabs collapse to one entry), ordered by role rank descending
// then display name ascending for a stable panel.
func (s *PresenceService) ListOnline(ctx context.Context, roomID uint, now time.Time) ([]domain.OnlineUser, error) {
	recs, err := s.presenceRepo.ListOnline(ctx, roomID, now.Add(-domain.OnlineWindow))
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to list online presence records")
		return nil, ErrInternalServer
	}

	// Collapse per-session rows into one entry per user.
	seen := make(map[uint]domain.OnlineUser, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.UserID]; ok {
			continue
		}
		seen[rec.UserID] = domain.OnlineUser{
			UserID:      rec.UserID,
			DisplayName: rec.DisplayName,
			Role:        rec.Role,
		}
	}

	users := make([]domain.OnlineUser, 0, len(seen))
	for _, u := range seen {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Role.Rank() != users[j].Role.Rank() {
			return users[i].Role.Rank() > users[j].Role.Rank()
		}
		return users[i].DisplayName < users[j].DisplayName
	})
	return users, nil
}

// PurgeStale deletes every record idle longer than the stale window.
// Called from the background worker, never inline on a request.
func (s *PresenceService) PurgeStale(ctx context.Context, now time.Time) (int64, error) {
	removed, err := s.presenceRepo.DeleteStale(ctx, now.Add(-domain.StaleWindow))
	if err != nil {
		logrus.WithError(err).Error("Failed to purge stale presence records")
		return 0, ErrInternalServer
	}
	if removed > 0 {
		logrus.WithField("removed", removed).Debug("Purged stale presence records")
	}
	return removed, nil
}

// schedulePurge enqueues a purge task when the redis throttle slot is
// free. Failures are logged only: a missed purge is retried by the next
// touch or the periodic scheduler.
func (s *PresenceService) schedulePurge(ctx context.Context, logCtx *logrus.Entry) {
	if s.enqueuer == nil || s.stateRepo == nil {
		return
	}
	ok, err := s.stateRepo.TryAcquirePurgeSlot(ctx, purgeSlotTTL)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to check presence purge slot")
		return
	}
	if !ok {
		return
	}
	if err := s.enqueuer.EnqueuePresencePurge(ctx); err != nil {
		logCtx.WithError(err).Warn("Failed to enqueue presence purge task")
	}
}
