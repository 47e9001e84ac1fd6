package middleware

import (
	"net/http"

	"meetup-backend/config"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

func Cors() gin.HandlerFunc {
	origins := config.Get().Cors.AllowOrigins
	allowAll := false
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
		// 通配来源下不能携带凭证
		AllowCredentials: !allowAll,
		MaxAge:           3600,
	})

	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		// 预检请求到此为止
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}
