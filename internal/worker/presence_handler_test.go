package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iparthanth/classroom-live/internal/repository/mocks"
	"github.com/iparthanth/classroom-live/internal/service"
	"github.com/iparthanth/classroom-live/internal/tasks"
)

func TestProcessTask_PurgesStaleRecords(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepository)
	handler := NewPresencePurgeHandler(service.NewPresenceService(presenceRepo, nil, nil))

	presenceRepo.On("DeleteStale", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		// Cutoff is taken at processing time, a beat behind now.
		return time.Since(cutoff) > 4*time.Minute
	})).Return(int64(2), nil)

	task, err := tasks.NewPresencePurgeTask()
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)

	assert.NoError(t, err)
	presenceRepo.AssertExpectations(t)
}

func TestProcessTask_BadPayloadSkipsRetry(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepository)
	handler := NewPresencePurgeHandler(service.NewPresenceService(presenceRepo, nil, nil))

	task := asynq.NewTask(tasks.TypePresencePurge, []byte("{not json"))

	err := handler.ProcessTask(context.Background(), task)

	assert.ErrorIs(t, err, asynq.SkipRetry)
	presenceRepo.AssertNotCalled(t, "DeleteStale", mock.Anything, mock.Anything)
}

func TestProcessTask_PurgeFailureIsRetryable(t *testing.T) {
	presenceRepo := new(mocks.PresenceRepository)
	handler := NewPresencePurgeHandler(service.NewPresenceService(presenceRepo, nil, nil))

	presenceRepo.On("DeleteStale", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	task, err := tasks.NewPresencePurgeTask()
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestPresencePurgePayload_RoundTrip(t *testing.T) {
	task, err := tasks.NewPresencePurgeTask()
	require.NoError(t, err)
	assert.Equal(t, tasks.TypePresencePurge, task.Type())

	var payload tasks.PresencePurgePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.WithinDuration(t, time.Now(), payload.RequestedAt, time.Minute)
}
