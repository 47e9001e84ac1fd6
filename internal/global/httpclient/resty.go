package httpclient

import (
	"time"

	"meetup-backend/internal/global/sentry/tracing"

	"github.com/go-resty/resty/v2"
)

var Client *resty.Client

func Init() {
	Client = New()
}

// New 创建带超时与追踪的客户端
func New() *resty.Client {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "meetup-backend")

	// 配置 Sentry 性能追踪（如果 Sentry 已启用）
	if tracing.IsEnabled() {
		tracing.SetupRestyTracing(client)
	}
	return client
}
