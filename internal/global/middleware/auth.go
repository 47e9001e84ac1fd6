package middleware

import (
	"errors"
	"strings"

	"meetup-backend/internal/global/identity"
	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
)

// Auth 校验访问令牌并写入 payload
// 浏览器的 WebSocket 无法自定义请求头，允许通过 ?token= 传递
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Fail(c, response.ErrUnauthorized)
			return
		}

		id, err := identity.Get().Verify(c.Request.Context(), token)
		switch {
		case errors.Is(err, identity.ErrInvalidToken):
			response.Fail(c, response.ErrTokenInvalid)
			return
		case errors.Is(err, identity.ErrEmailTaken):
			response.Fail(c, response.ErrAlreadyExists.WithTips("该邮箱已绑定其他账号"))
			return
		case err != nil:
			response.Fail(c, response.ErrServerInternal.WithOrigin(err))
			return
		}

		jwt.SetUserPayload(c, jwt.Payload{UserID: id.UserID, Email: id.Email})
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		// 检查 Bearer 前缀并提取 token
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}
