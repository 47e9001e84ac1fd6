package identity

import (
	"meetup-backend/config"
	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/httpclient"
)

// Init 按配置选择令牌校验方式，需在 database 与 httpclient 之后调用
func Init() {
	cfg := config.Get().Auth
	switch cfg.Provider {
	case config.AuthProviderRemote:
		Set(NewRemoteVerifier(httpclient.Client, cfg.RemoteURL, cfg.APIKey, NewUserProvisioner(database.DB)))
	default:
		Set(LocalVerifier{})
	}
}
