package user

import (
	"log/slog"

	"meetup-backend/internal/global/logger"
	"meetup-backend/internal/global/pictureBed"
)

var (
	log *slog.Logger
	bed *pictureBed.PictureBed
)

type ModuleUser struct{}

func (u *ModuleUser) GetName() string {
	return "User"
}

func (u *ModuleUser) Init() {
	log = logger.New("User")
	bed = pictureBed.Default
}
