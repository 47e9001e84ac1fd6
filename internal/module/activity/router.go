package activity

import (
	"meetup-backend/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (m *ModuleActivity) InitRouter(r *gin.RouterGroup) {
	activityGroup := r.Group("/activities", middleware.Auth())
	{
		activityGroup.POST("", CreateActivity)
		activityGroup.GET("", ListActivities)
		activityGroup.GET("/:id", GetActivity)
		activityGroup.POST("/:id/leave", LeaveActivity)
		activityGroup.POST("/:id/close", CloseActivity)

		activityGroup.GET("/:id/participants", ListParticipants)
		activityGroup.GET("/:id/participants/export", ExportParticipants)
		activityGroup.GET("/:id/pending", ListPending)
	}

	// 加入与审核会触发通知，单独限流
	limited := activityGroup.Group("", middleware.RateLimit())
	{
		limited.POST("/:id/join", JoinActivity)
		limited.POST("/:id/approve", ApproveRequest)
		limited.POST("/:id/reject", RejectRequest)
	}
}
