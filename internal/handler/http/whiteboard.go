package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/dto"
	"github.com/iparthanth/classroom-live/internal/service"
)

// WhiteboardHandler exposes the whiteboard wire protocol: teacher snapshot
// saves and viewer loads.
type WhiteboardHandler struct {
	wbService *service.WhiteboardService
	access    domain.AccessChecker
}

// NewWhiteboardHandler creates a WhiteboardHandler instance.
func NewWhiteboardHandler(wbService *service.WhiteboardService, access domain.AccessChecker) *WhiteboardHandler {
	if wbService == nil {
		panic("WhiteboardService cannot be nil for WhiteboardHandler")
	}
	if access == nil {
		panic("AccessChecker cannot be nil for WhiteboardHandler")
	}
	return &WhiteboardHandler{wbService: wbService, access: access}
}

// SaveWhiteboard handles POST /api/rooms/:roomId/whiteboard. Teacher only;
// the service mirrors the role check.
func (h *WhiteboardHandler) SaveWhiteboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	if !requireRoomAccess(c, h.access, user, roomID) {
		return
	}

	var req dto.SaveWhiteboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.wbService.Save(c.Request.Context(), user, roomID, sessionToken(c), req.Title, req.ImageData)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.Envelope{Success: true})
}

// LoadWhiteboard handles GET /api/rooms/:roomId/whiteboard. An empty
// image_data means the room has never been drawn on.
func (h *WhiteboardHandler) LoadWhiteboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	if !requireRoomAccess(c, h.access, user, roomID) {
		return
	}

	imageData, err := h.wbService.Load(c.Request.Context(), user, roomID, sessionToken(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.WhiteboardResponse{
		Envelope:  dto.Envelope{Success: true},
		ImageData: imageData,
	})
}
