package user

import (
	"meetup-backend/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

// InitRouter 注册与登录只在本地身份模式下可用，其余端点两种模式通用
func (u *ModuleUser) InitRouter(r *gin.RouterGroup) {
	userGroup := r.Group("/user")

	userGroup.POST("/register", Register)
	userGroup.POST("/login", Login)

	authed := userGroup.Group("", middleware.Auth())
	{
		authed.GET("/me", GetMe)
		authed.PUT("/password", ChangePassword)
		authed.PUT("/profile", UpdateProfile)
		authed.POST("/avatar/presign", PresignAvatar)
		authed.POST("/avatar", UploadAvatar)
	}
}
