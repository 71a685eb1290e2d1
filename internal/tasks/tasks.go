// Package tasks defines the background task types carried over asynq and
// the enqueuer the services use to schedule them.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants.
const (
	// TypePresencePurge deletes presence records idle beyond the stale
	// window. Enqueued opportunistically from touch (throttled) and by
	// the periodic scheduler.
	TypePresencePurge = "presence:purge"
)

// PresencePurgePayload records when the purge was requested. The cutoff is
// computed at processing time, so a delayed task never purges too deep.
type PresencePurgePayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewPresencePurgeTask builds the purge task.
func NewPresencePurgeTask() (*asynq.Task, error) {
	payload, err := json.Marshal(PresencePurgePayload{RequestedAt: time.Now()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePresencePurge, payload), nil
}

// Enqueuer schedules background tasks through the asynq client. It
// implements service.PurgeEnqueuer.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an Enqueuer instance.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	if client == nil {
		panic("asynq client cannot be nil for Enqueuer")
	}
	return &Enqueuer{client: client}
}

// EnqueuePresencePurge schedules one purge run on the default queue.
func (e *Enqueuer) EnqueuePresencePurge(ctx context.Context) error {
	task, err := NewPresencePurgeTask()
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue("default"))
	return err
}
