// Package mocks provides testify mocks for the repository interfaces,
// used by the service tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iparthanth/classroom-live/internal/domain"
)

// MessageRepository mocks repository.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) FetchSince(ctx context.Context, roomID uint, afterSeq uint64, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, afterSeq, limit)
	if msgs, ok := args.Get(0).([]domain.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MessageRepository) FetchLatest(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if msgs, ok := args.Get(0).([]domain.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

// PresenceRepository mocks repository.PresenceRepository.
type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) Upsert(ctx context.Context, rec *domain.PresenceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *PresenceRepository) ListOnline(ctx context.Context, roomID uint, activeSince time.Time) ([]domain.PresenceRecord, error) {
	args := m.Called(ctx, roomID, activeSince)
	if recs, ok := args.Get(0).([]domain.PresenceRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PresenceRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// SnapshotRepository mocks repository.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) Upsert(ctx context.Context, snap *domain.WhiteboardSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *SnapshotRepository) GetByRoom(ctx context.Context, roomID uint) (*domain.WhiteboardSnapshot, error) {
	args := m.Called(ctx, roomID)
	if snap, ok := args.Get(0).(*domain.WhiteboardSnapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

// StateRepository mocks repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) GetSnapshotCache(ctx context.Context, roomID uint) (*domain.WhiteboardSnapshot, error) {
	args := m.Called(ctx, roomID)
	if snap, ok := args.Get(0).(*domain.WhiteboardSnapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StateRepository) SetSnapshotCache(ctx context.Context, roomID uint, snap *domain.WhiteboardSnapshot, ttl time.Duration) error {
	args := m.Called(ctx, roomID, snap, ttl)
	return args.Error(0)
}

func (m *StateRepository) DeleteSnapshotCache(ctx context.Context, roomID uint) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *StateRepository) TryAcquirePurgeSlot(ctx context.Context, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, ttl)
	return args.Bool(0), args.Error(1)
}
