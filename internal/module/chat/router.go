package chat

import (
	"meetup-backend/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (m *ModuleChat) InitRouter(r *gin.RouterGroup) {
	conversationGroup := r.Group("/conversation", middleware.Auth())
	{
		conversationGroup.GET("/list", ListConversations)
		conversationGroup.GET("/:id/participants", ListParticipants)
	}
}
