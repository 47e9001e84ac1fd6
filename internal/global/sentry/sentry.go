package sentry

import (
	"fmt"
	"time"

	"meetup-backend/config"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

const release = "meetup-backend@1.0.0"

// CodedError 带错误码的错误，只有 5xx 会被上报
type CodedError interface {
	error
	GetCode() int32
}

// Init 初始化 Sentry SDK，未配置 DSN 时跳过
func Init() error {
	cfg := config.Get()
	if cfg.Sentry.Dsn == "" {
		return nil
	}

	tracesSampleRate := cfg.Sentry.SampleRate
	if tracesSampleRate <= 0 {
		tracesSampleRate = 1.0
	}
	environment := cfg.Sentry.Environment
	if environment == "" {
		environment = string(cfg.Mode)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.Dsn,
		Environment:      environment,
		Release:          release,
		SampleRate:       1.0, // 错误事件不采样
		EnableTracing:    true,
		TracesSampleRate: tracesSampleRate,
		EnableLogs:       true,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

// Middleware 返回 Sentry Gin 中间件，未配置 DSN 时为空中间件
func Middleware() gin.HandlerFunc {
	if config.Get().Sentry.Dsn == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true, // 交给后续的 Recovery 中间件处理
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// CaptureException 上报服务器错误，业务错误不上报
func CaptureException(c *gin.Context, err error) {
	if config.Get().Sentry.Dsn == "" || !shouldReport(err) {
		return
	}

	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetRequest(c.Request)
			scope.SetTag("path", c.FullPath())
			scope.SetTag("method", c.Request.Method)
			if id := c.GetString("request_id"); id != "" {
				scope.SetTag("request_id", id)
			}
			if payload, exists := c.Get("payload"); exists {
				scope.SetUser(sentry.User{
					Data: map[string]string{
						"payload": fmt.Sprintf("%+v", payload),
					},
				})
			}
			hub.CaptureException(err)
		})
	}
}

// shouldReport 只上报 5xx，非自定义错误默认上报
func shouldReport(err error) bool {
	if e, ok := err.(CodedError); ok {
		return e.GetCode() >= 50000 && e.GetCode() < 60000
	}
	return true
}

// Flush 退出前调用，确保事件发送完毕
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
