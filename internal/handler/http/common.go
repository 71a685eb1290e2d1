package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/iparthanth/classroom-live/internal/domain"
	"github.com/iparthanth/classroom-live/internal/middleware"
)

// SessionTokenHeader carries the opaque per-browser-session identifier
// that keys presence records. The client library generates one per
// session.
const SessionTokenHeader = "X-Session-Token"

// currentUser pulls the portal identity set by the identity middleware.
// A miss means the middleware is missing from the route, which is a
// server wiring bug, not a client error.
func currentUser(c *gin.Context) (domain.CurrentUser, bool) {
	userAny, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		logrus.Warn("Handler: current user not found in context, identity middleware missing?")
		ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return domain.CurrentUser{}, false
	}
	user, ok := userAny.(domain.CurrentUser)
	if !ok {
		logrus.Error("Handler: current user in context has wrong type")
		ErrorResponse(c, http.StatusInternalServerError, "Internal error processing user identity")
		return domain.CurrentUser{}, false
	}
	return user, true
}

// roomIDParam parses the :roomId path segment.
func roomIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("roomId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid room id")
		return 0, false
	}
	return uint(id), true
}

// sessionToken returns the caller's session token. Absent headers fall
// back to the client IP; that only degrades presence display freshness.
func sessionToken(c *gin.Context) string {
	if tok := c.GetHeader(SessionTokenHeader); tok != "" {
		return tok
	}
	return "ip:" + c.ClientIP()
}

// requireRoomAccess consults the portal's access capability. The core
// never decides membership itself; it only refuses to act without proof.
func requireRoomAccess(c *gin.Context, checker domain.AccessChecker, user domain.CurrentUser, roomID uint) bool {
	ok, err := checker.CanAccessRoom(c.Request.Context(), user.ID, roomID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user_id": user.ID, "room_id": roomID}).
			Error("Room access check failed")
		ErrorResponse(c, http.StatusInternalServerError, "Could not verify room access")
		return false
	}
	if !ok {
		ErrorResponse(c, http.StatusForbidden, "You are not a participant of this course")
		return false
	}
	return true
}
