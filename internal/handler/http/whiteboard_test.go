package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/dto"
	"github.com/iparthanth/classroom-live/internal/middleware"
	"github.com/iparthanth/classroom-live/internal/repository"
	"github.com/iparthanth/classroom-live/internal/repository/mocks"
	"github.com/iparthanth/classroom-live/internal/service"
)

func newWhiteboardRouter(user domain.CurrentUser, access domain.AccessChecker) (*gin.Engine, *mocks.SnapshotRepository, *mocks.StateRepository, *mocks.PresenceRepository) {
	gin.SetMode(gin.TestMode)

	snapRepo := new(mocks.SnapshotRepository)
	stateRepo := new(mocks.StateRepository)
	presenceRepo := new(mocks.PresenceRepository)
	presence := service.NewPresenceService(presenceRepo, nil, nil)
	wb := service.NewWhiteboardService(snapRepo, stateRepo, presence)
	handler := NewWhiteboardHandler(wb, access)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, user)
		c.Next()
	})
	router.POST("/api/rooms/:roomId/whiteboard", handler.SaveWhiteboard)
	router.GET("/api/rooms/:roomId/whiteboard", handler.LoadWhiteboard)
	return router, snapRepo, stateRepo, presenceRepo
}

func TestSaveWhiteboard_TeacherSuccess(t *testing.T) {
	teacher := domain.CurrentUser{ID: 3, Role: domain.RoleTeacher, DisplayName: "Ms. Finch"}
	router, snapRepo, stateRepo, presenceRepo := newWhiteboardRouter(teacher, allowAll)

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	snapRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(s *domain.WhiteboardSnapshot) bool {
		return s.RoomID == 7 && s.AuthorTeacherID == 3 && s.ImageData == "data:image/png;base64,AAAA"
	})).Return(nil)
	stateRepo.On("DeleteSnapshotCache", mock.Anything, uint(7)).Return(nil)

	body, _ := json.Marshal(dto.SaveWhiteboardRequest{ImageData: "data:image/png;base64,AAAA"})
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/7/whiteboard", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var env dto.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	snapRepo.AssertExpectations(t)
}

func TestSaveWhiteboard_StudentForbidden(t *testing.T) {
	student := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}
	router, snapRepo, _, _ := newWhiteboardRouter(student, allowAll)

	body, _ := json.Marshal(dto.SaveWhiteboardRequest{ImageData: "data:image/png;base64,AAAA"})
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/7/whiteboard", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var env dto.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	snapRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSaveWhiteboard_AccessDenied(t *testing.T) {
	teacher := domain.CurrentUser{ID: 3, Role: domain.RoleTeacher, DisplayName: "Ms. Finch"}
	router, snapRepo, _, _ := newWhiteboardRouter(teacher, denyAll)

	body, _ := json.Marshal(dto.SaveWhiteboardRequest{ImageData: "data:image/png;base64,AAAA"})
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/7/whiteboard", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	snapRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestLoadWhiteboard_ReturnsImageData(t *testing.T) {
	viewer := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}
	router, _, stateRepo, presenceRepo := newWhiteboardRouter(viewer, allowAll)

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	stateRepo.On("GetSnapshotCache", mock.Anything, uint(7)).
		Return(&domain.WhiteboardSnapshot{RoomID: 7, ImageData: "data:image/png;base64,AAAA"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/7/whiteboard", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.WhiteboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "data:image/png;base64,AAAA", resp.ImageData)
}

func TestLoadWhiteboard_NeverDrawnRoom(t *testing.T) {
	viewer := domain.CurrentUser{ID: 5, Role: domain.RoleStudent, DisplayName: "Ann"}
	router, snapRepo, stateRepo, presenceRepo := newWhiteboardRouter(viewer, allowAll)

	presenceRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	stateRepo.On("GetSnapshotCache", mock.Anything, uint(7)).Return(nil, repository.ErrCacheMiss)
	snapRepo.On("GetByRoom", mock.Anything, uint(7)).Return(nil, repository.ErrSnapshotNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/7/whiteboard", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.WhiteboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.ImageData)
}
