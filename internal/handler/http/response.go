package http

import (
	"github.com/gin-gonic/gin"

	"github.com/iparthanth/classroom-live/internal/dto"
)

// ErrorResponse writes a failed envelope with the given status.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, dto.Envelope{Success: false, Error: message})
}

// SuccessResponse writes data as-is; data carries its own envelope.
func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
