package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/repository"
	"github.com/iparthanth/classroom-live/internal/repository/mocks"
)

func newWhiteboardFixture() (*WhiteboardService, *mocks.SnapshotRepository, *mocks.StateRepository, *mocks.PresenceRepository) {
	snapRepo := new(mocks.SnapshotRepository)
	stateRepo := new(mocks.StateRepository)
	presenceRepo := new(mocks.PresenceRepository)
	presence := NewPresenceService(presenceRepo, nil, nil)
	return NewWhiteboardService(snapRepo, stateRepo, presence), snapRepo, stateRepo, presenceRepo
}

func TestWhiteboardSave_UpsertsAndInvalidatesCache(t *testing.T) {
	svc, snapRepo, stateRepo, presenceRepo := newWhiteboardFixture()
	teacher := domain.CurrentUser{ID: 3, Role: domain.RoleTeacher, DisplayName: "Ms. Finch"}

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	snapRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(s *domain.WhiteboardSnapshot) bool {
		return s.RoomID == 7 &&
			s.AuthorTeacherID == 3 &&
			s.Title == "Lesson 4" &&
			s.ImageData == "data:image/png;base64,AAAA" &&
			s.IsActive
	})).Return(nil)
	stateRepo.On("DeleteSnapshotCache", mock.Anything, uint(7)).Return(nil)

	err := svc.Save(context.Background(), teacher, 7, "tab-1", "Lesson 4", "data:image/png;base64,AAAA")

	assert.NoError(t, err)
	snapRepo.AssertExpectations(t)
	stateRepo.AssertExpectations(t)
	// A save never writes the cache; the next load repopulates it from
	// the row that won the commit race.
	stateRepo.AssertNotCalled(t, "SetSnapshotCache", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWhiteboardSave_NonTeacherDenied(t *testing.T) {
	svc, snapRepo, _, _ := newWhiteboardFixture()
	student := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}

	err := svc.Save(context.Background(), student, 7, "tab-1", "", "data:image/png;base64,AAAA")

	assert.ErrorIs(t, err, ErrAccessDenied)
	snapRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestWhiteboardSave_RejectsEmptyImageData(t *testing.T) {
	svc, snapRepo, _, _ := newWhiteboardFixture()
	teacher := domain.CurrentUser{ID: 3, Role: domain.RoleTeacher, DisplayName: "Ms. Finch"}

	err := svc.Save(context.Background(), teacher, 7, "tab-1", "", "")

	assert.ErrorIs(t, err, ErrValidation)
	snapRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestWhiteboardSave_RejectsOversizedImageData(t *testing.T) {
	svc, snapRepo, _, _ := newWhiteboardFixture()
	teacher := domain.CurrentUser{ID: 3, Role: domain.RoleTeacher, DisplayName: "Ms. Finch"}

	err := svc.Save(context.Background(), teacher, 7, "tab-1", "", strings.Repeat("A", maxImageDataLen+1))

	assert.ErrorIs(t, err, ErrValidation)
	snapRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestWhiteboardSave_CacheFailureDoesNotFailSave(t *testing.T) {
	svc, snapRepo, stateRepo, presenceRepo := newWhiteboardFixture()
	teacher := domain.CurrentUser{ID: 3, Role: domain.RoleTeacher, DisplayName: "Ms. Finch"}

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	snapRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	stateRepo.On("DeleteSnapshotCache", mock.Anything, uint(7)).
		Return(errors.New("redis down"))

	err := svc.Save(context.Background(), teacher, 7, "tab-1", "", "data:image/png;base64,AAAA")

	assert.NoError(t, err)
}

func TestWhiteboardLoad_CacheHitSkipsDatabase(t *testing.T) {
	svc, snapRepo, stateRepo, presenceRepo := newWhiteboardFixture()
	viewer := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	stateRepo.On("GetSnapshotCache", mock.Anything, uint(7)).
		Return(&domain.WhiteboardSnapshot{RoomID: 7, ImageData: "data:image/png;base64,AAAA"}, nil)

	data, err := svc.Load(context.Background(), viewer, 7, "tab-1")

	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", data)
	snapRepo.AssertNotCalled(t, "GetByRoom", mock.Anything, mock.Anything)
}

func TestWhiteboardLoad_CacheMissFallsBackAndBackfills(t *testing.T) {
	svc, snapRepo, stateRepo, presenceRepo := newWhiteboardFixture()
	viewer := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}

	snap := &domain.WhiteboardSnapshot{RoomID: 7, ImageData: "data:image/png;base64,BBBB"}
	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	stateRepo.On("GetSnapshotCache", mock.Anything, uint(7)).Return(nil, repository.ErrCacheMiss)
	snapRepo.On("GetByRoom", mock.Anything, uint(7)).Return(snap, nil)
	stateRepo.On("SetSnapshotCache", mock.Anything, uint(7), snap, snapshotCacheTTL).Return(nil)

	data, err := svc.Load(context.Background(), viewer, 7, "tab-1")

	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,BBBB", data)
	stateRepo.AssertExpectations(t)
}

func TestWhiteboardLoad_NeverDrawnRoomReturnsEmpty(t *testing.T) {
	svc, snapRepo, stateRepo, presenceRepo := newWhiteboardFixture()
	viewer := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	stateRepo.On("GetSnapshotCache", mock.Anything, uint(7)).Return(nil, repository.ErrCacheMiss)
	snapRepo.On("GetByRoom", mock.Anything, uint(7)).Return(nil, repository.ErrSnapshotNotFound)

	data, err := svc.Load(context.Background(), viewer, 7, "tab-1")

	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWhiteboardLoad_DatabaseFailure(t *testing.T) {
	svc, snapRepo, stateRepo, presenceRepo := newWhiteboardFixture()
	viewer := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	stateRepo.On("GetSnapshotCache", mock.Anything, uint(7)).Return(nil, repository.ErrCacheMiss)
	snapRepo.On("GetByRoom", mock.Anything, uint(7)).Return(nil, errors.New("db down"))

	_, err := svc.Load(context.Background(), viewer, 7, "tab-1")

	assert.ErrorIs(t, err, ErrInternalServer)
}

func TestWhiteboardSaveThenLoad_LastWriteWins(t *testing.T) {
	svc, snapRepo, stateRepo, presenceRepo := newWhiteboardFixture()
	teacher := domain.CurrentUser{ID: 3, Role: domain.RoleTeacher, DisplayName: "Ms. Finch"}

	var stored *domain.WhiteboardSnapshot
	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	snapRepo.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.WhiteboardSnapshot)
	}).Return(nil)
	stateRepo.On("DeleteSnapshotCache", mock.Anything, uint(7)).Return(nil)
	stateRepo.On("GetSnapshotCache", mock.Anything, uint(7)).Return(nil, repository.ErrCacheMiss)
	stateRepo.On("SetSnapshotCache", mock.Anything, uint(7), mock.Anything, snapshotCacheTTL).Return(nil)

	require.NoError(t, svc.Save(context.Background(), teacher, 7, "tab-1", "", "data:image/png;base64,AAAA"))
	require.NoError(t, svc.Save(context.Background(), teacher, 7, "tab-1", "", "data:image/png;base64,BBBB"))

	snapRepo.On("GetByRoom", mock.Anything, uint(7)).Return(stored, nil)
	data, err := svc.Load(context.Background(), teacher, 7, "tab-1")

	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,BBBB", data)
}
