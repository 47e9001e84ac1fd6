package middleware

import (
	"meetup-backend/internal/global/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID 沿用上游传入的请求 ID，没有则生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
