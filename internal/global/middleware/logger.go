package middleware

import (
	"bytes"
	"log/slog"
	"strings"
	"time"

	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/logger"

	sentrylib "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// maxResponseLogSize 日志中记录的响应体最大大小（10KB）
const maxResponseLogSize = 10 * 1024

// responseBodyWriter 包装 gin.ResponseWriter 以捕获响应体内容
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	if w.body.Len() < maxResponseLogSize {
		// 只缓存前 maxResponseLogSize 字节，避免大响应占用过多内存
		remaining := maxResponseLogSize - w.body.Len()
		if len(b) <= remaining {
			w.body.Write(b)
		} else {
			w.body.Write(b[:remaining])
		}
	}
	return w.ResponseWriter.Write(b)
}

func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		blw := &responseBodyWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBufferString(""),
		}
		c.Writer = blw

		c.Next()

		latency := time.Since(startTime)

		// 导出文件等二进制响应不记录响应体
		responseBody := ""
		if contentType := c.Writer.Header().Get("Content-Type"); strings.HasPrefix(contentType, "application/json") {
			responseBody = blw.body.String()
			if blw.body.Len() >= maxResponseLogSize {
				responseBody += "...(truncated)"
			}
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency", latency.String(),
			"response_body", responseBody,
		}
		if payload, ok := jwt.GetUserPayload(c); ok {
			attrs = append(attrs, "user_id", payload.UserID)
		}
		logger.WithContext(log, c).Info("HTTP Request", attrs...)
	}
}

// SentryEnrichIP 中间件：将 client IP 注入到 Sentry Scope 中
// 放在 sentry.Middleware() 之后，所有后续的 Sentry 上报（日志、事件、性能追踪）都会自动携带 IP
func SentryEnrichIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.ConfigureScope(func(scope *sentrylib.Scope) {
				clientIP := c.ClientIP()

				scope.SetUser(sentrylib.User{
					IPAddress: clientIP,
				})
				scope.SetTag("client_ip", clientIP)
				if id := c.GetString(logger.RequestIDKey); id != "" {
					scope.SetTag(logger.RequestIDKey, id)
				}

				// 记录代理转发的真实 IP
				if forwardedFor := c.GetHeader("X-Forwarded-For"); forwardedFor != "" {
					scope.SetTag("x_forwarded_for", forwardedFor)
				}
				if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
					scope.SetTag("x_real_ip", realIP)
				}
			})
		}
		c.Next()
	}
}
