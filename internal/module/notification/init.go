package notification

import (
	"log/slog"

	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/logger"
	"meetup-backend/internal/global/redisclient"
)

var (
	log        *slog.Logger
	dispatcher *Dispatcher
)

type ModuleNotification struct{}

func (m *ModuleNotification) GetName() string {
	return "Notification"
}

func (m *ModuleNotification) Init() {
	log = logger.New("Notification")
	dispatcher = NewDispatcher(database.DB, redisclient.Client, log)
}

// Default 供其他模块发送通知，需在 Init 之后调用
func Default() *Dispatcher {
	return dispatcher
}
