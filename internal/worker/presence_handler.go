package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/service"
	"github.com/iparthanth/classroom-live/internal/tasks"
)

// PresencePurgeHandler processes stale-presence purge tasks.
type PresencePurgeHandler struct {
	presence *service.PresenceService
}

// NewPresencePurgeHandler creates a handler instance.
func NewPresencePurgeHandler(presence *service.PresenceService) *PresencePurgeHandler {
	if presence == nil {
		panic("PresenceService cannot be nil for PresencePurgeHandler")
	}
	return &PresencePurgeHandler{presence: presence}
}

// ProcessTask implements asynq.Handler. The cutoff is taken at processing
// time, not enqueue time, so delayed tasks never purge records that were
// fresh when the task finally ran.
func (h *PresencePurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.PresencePurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal presence purge payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":    t.Type(),
		"requested_at": payload.RequestedAt,
	})
	logCtx.Debug("Processing presence purge task...")

	removed, err := h.presence.PurgeStale(ctx, time.Now())
	if err != nil {
		logCtx.WithError(err).Error("Presence purge failed")
		return err
	}
	logCtx.WithField("removed", removed).Info("Presence purge complete")
	return nil
}
