package module

import (
	"meetup-backend/internal/module/activity"
	"meetup-backend/internal/module/chat"
	"meetup-backend/internal/module/notification"
	"meetup-backend/internal/module/ping"
	"meetup-backend/internal/module/user"

	"github.com/gin-gonic/gin"
)

type Module interface {
	GetName() string
	Init()
	InitRouter(r *gin.RouterGroup)
}

var Modules []Module

func registerModule(m []Module) {
	Modules = append(Modules, m...)
}

func init() {
	// Activity 依赖 Chat 与 Notification，必须排在二者之后
	registerModule([]Module{
		&user.ModuleUser{},
		&ping.ModulePing{},
		&chat.ModuleChat{},
		&notification.ModuleNotification{},
		&activity.ModuleActivity{},
	})
}
