package chat

import (
	"log/slog"

	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/logger"
)

var (
	log      *slog.Logger
	registry *Registry
)

type ModuleChat struct{}

func (m *ModuleChat) GetName() string {
	return "Chat"
}

func (m *ModuleChat) Init() {
	log = logger.New("Chat")
	registry = NewRegistry(database.DB)
}

// Default 供其他模块使用的会话注册表，需在 Init 之后调用
func Default() *Registry {
	return registry
}
