package notification

import (
	"meetup-backend/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (m *ModuleNotification) InitRouter(r *gin.RouterGroup) {
	notificationGroup := r.Group("/notification", middleware.Auth())
	{
		notificationGroup.GET("/list", List)
		notificationGroup.PUT("/read/:id", MarkRead)
		notificationGroup.PUT("/read-all", MarkAllRead)
		notificationGroup.GET("/stream", Stream)
	}
}
