package redisclient

import (
	"context"
	"net"
	"time"

	"meetup-backend/config"
	"meetup-backend/internal/global/sentry/tracing"
	"meetup-backend/tools"

	"github.com/redis/go-redis/v9"
)

// Client 未配置 Redis 时为 nil，调用方需判断
var Client *redis.Client

func Init() {
	cfg := config.Get().Redis
	if !cfg.Enabled() {
		return
	}
	Client = New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tools.PanicOnErr(Client.Ping(ctx).Err())
}

func New(cfg config.Redis) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if tracing.IsEnabled() {
		client.AddHook(tracing.NewRedisSentryHook())
	}
	return client
}
