package activity

import (
	"log/slog"

	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/logger"
	"meetup-backend/internal/module/chat"
	"meetup-backend/internal/module/notification"
)

var (
	log     *slog.Logger
	service *Service
)

type ModuleActivity struct{}

func (m *ModuleActivity) GetName() string {
	return "Activity"
}

// Init 依赖 Chat 与 Notification 模块，注册顺序需在二者之后
func (m *ModuleActivity) Init() {
	log = logger.New("Activity")
	service = NewService(NewRepository(database.DB), chat.Default(), notification.Default(), log)
}
