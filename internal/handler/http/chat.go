package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/dto"
	"github.com/iparthanth/classroom-live/internal/service"
)

// ChatHandler exposes the chat wire protocol: send, fetch-since /
// fetch-latest, and list-online-users. All operations are stateless
// polls; the server keeps no per-session state between requests.
type ChatHandler struct {
	chatService *service.ChatService
	access      domain.AccessChecker
}

// NewChatHandler creates a ChatHandler instance.
func NewChatHandler(chatService *service.ChatService, access domain.AccessChecker) *ChatHandler {
	if chatService == nil {
		panic("ChatService cannot be nil for ChatHandler")
	}
	if access == nil {
		panic("AccessChecker cannot be nil for ChatHandler")
	}
	return &ChatHandler{chatService: chatService, access: access}
}

// SendMessage handles POST /api/rooms/:roomId/messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
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

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.chatService.Send(c.Request.Context(), user, roomID, sessionToken(c), req.Body)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, dto.Envelope{Success: true})
}

// FetchMessages handles GET /api/rooms/:roomId/messages. With an after_id
// query parameter it returns messages newer than that cursor; without one
// it returns the latest page for the initial load.
func (h *ChatHandler) FetchMessages(c *gin.Context) {
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

	ctx := c.Request.Context()
	token := sessionToken(c)

	var msgs []domain.Message
	var err error
	if afterRaw, present := c.GetQuery("after_id"); present {
		afterID, parseErr := strconv.ParseUint(afterRaw, 10, 64)
		if parseErr != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid after_id")
			return
		}
		msgs, err = h.chatService.FetchSince(ctx, user, roomID, token, afterID, service.DefaultFetchLimit)
	} else {
		msgs, err = h.chatService.FetchLatest(ctx, user, roomID, token, service.DefaultFetchLimit)
	}
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	payload := make([]dto.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		payload = append(payload, dto.MessagePayload{
			ID:                m.Seq,
			AuthorDisplayName: m.AuthorDisplayName,
			AuthorRole:        string(m.AuthorRole),
			Body:              m.Body,
			CreatedAt:         m.CreatedAt,
		})
	}
	SuccessResponse(c, http.StatusOK, dto.MessagesResponse{
		Envelope: dto.Envelope{Success: true},
		Messages: payload,
	})
}

// ListOnline handles GET /api/rooms/:roomId/online.
func (h *ChatHandler) ListOnline(c *gin.Context) {
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

	users, err := h.chatService.ListOnline(c.Request.Context(), user, roomID, sessionToken(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	payload := make([]dto.OnlineUserPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, dto.OnlineUserPayload{
			DisplayName: u.DisplayName,
			Role:        string(u.Role),
		})
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "online": len(payload)}).Debug("Online users listed")
	SuccessResponse(c, http.StatusOK, dto.OnlineUsersResponse{
		Envelope: dto.Envelope{Success: true},
		Users:    payload,
	})
}
