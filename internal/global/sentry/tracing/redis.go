package tracing

import (
	"context"
	"errors"
	"strings"

	"meetup-backend/config"

	"github.com/redis/go-redis/v9"
)

// pipelineShown pipeline 描述中最多列出的命令数
const pipelineShown = 3

// RedisSentryHook 追踪 redis 命令，PUBLISH 额外记录通知频道
type RedisSentryHook struct {
	cfg config.SentryTracing
}

func NewRedisSentryHook() *RedisSentryHook {
	return &RedisSentryHook{cfg: config.Get().Sentry.Tracing}
}

func (h *RedisSentryHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *RedisSentryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		span := startTimed(ctx, "db.redis", strings.ToUpper(cmd.Name()), thresholdMs(h.cfg.RedisSlowThresholdMs))
		if span == nil {
			return next(ctx, cmd)
		}
		span.SetData("db.system", "redis")
		span.SetData("db.operation", cmd.Name())
		if channel := publishChannel(cmd); channel != "" {
			span.SetData("messaging.destination.name", channel)
		}

		err := next(span.Context(), cmd)
		span.finish("redis.error", err, redisFailed(err))
		return err
	}
}

func (h *RedisSentryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		span := startTimed(ctx, "db.redis.pipeline", pipelineDescription(cmds), thresholdMs(h.cfg.RedisSlowThresholdMs))
		if span == nil {
			return next(ctx, cmds)
		}
		span.SetData("db.system", "redis")
		span.SetData("redis.pipeline_length", len(cmds))

		err := next(span.Context(), cmds)
		span.finish("redis.error", err, redisFailed(err))
		return err
	}
}

// redisFailed 订阅读取超时与 redis.Nil 不算失败
func redisFailed(err error) bool {
	return err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, context.DeadlineExceeded)
}

func publishChannel(cmd redis.Cmder) string {
	args := cmd.Args()
	if !strings.EqualFold(cmd.Name(), "publish") || len(args) < 2 {
		return ""
	}
	channel, _ := args[1].(string)
	return channel
}

func pipelineDescription(cmds []redis.Cmder) string {
	if len(cmds) == 0 {
		return "PIPELINE (empty)"
	}
	names := make([]string, 0, pipelineShown)
	for i, cmd := range cmds {
		if i == pipelineShown {
			break
		}
		names = append(names, strings.ToUpper(cmd.Name()))
	}
	desc := "PIPELINE: " + strings.Join(names, ", ")
	if len(cmds) > pipelineShown {
		desc += "..."
	}
	return desc
}
