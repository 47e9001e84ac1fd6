package ping

import (
	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

func (p *ModulePing) InitRouter(r *gin.RouterGroup) {
	r.GET("/ping", Ping)
}

func Ping(c *gin.Context) {
	log.Debug("ping", "client_ip", c.ClientIP())
	response.Success(c, map[string]interface{}{
		"message": "pong",
		"version": version,
	})
}
