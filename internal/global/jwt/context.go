package jwt

import (
	"github.com/gin-gonic/gin"
)

// PayloadKey Auth 中间件写入 gin.Context 的键
const PayloadKey = "payload"

func GetUserPayload(c *gin.Context) (userPayload *Claims, exist bool) {
	payload, _ := c.Get(PayloadKey)
	userPayload, exist = payload.(*Claims)
	return
}

// SetUserPayload 写入当前用户，测试中也直接调用
func SetUserPayload(c *gin.Context, payload Payload) {
	c.Set(PayloadKey, &Claims{Payload: payload})
}
