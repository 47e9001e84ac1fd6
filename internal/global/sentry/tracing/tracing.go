// Package tracing 为 gorm、redis 与 resty 挂载 Sentry span
package tracing

import (
	"context"
	"time"

	"meetup-backend/config"

	"github.com/getsentry/sentry-go"
)

// IsEnabled 配置了 DSN 才挂载追踪
func IsEnabled() bool {
	return config.Get().Sentry.Dsn != ""
}

// StartSpan 在 ctx 中已有的 transaction 下创建子 span
// 没有父 span 时返回原 ctx 和空的结束函数
//
//	ctx, finish := tracing.StartSpan(ctx, "activity.join", "加入活动")
//	defer finish()
func StartSpan(ctx context.Context, operation, description string) (context.Context, func()) {
	span := childSpan(ctx, operation, description)
	if span == nil {
		return ctx, func() {}
	}
	return span.Context(), span.Finish
}

func childSpan(ctx context.Context, operation, description string) *sentry.Span {
	if ctx == nil {
		return nil
	}
	parent := sentry.SpanFromContext(ctx)
	if parent == nil {
		return nil
	}
	span := parent.StartChild(operation)
	span.Description = description
	return span
}

// timedSpan 记录开始时间，快于阈值的 span 不上报
type timedSpan struct {
	*sentry.Span
	start     time.Time
	threshold time.Duration
}

func startTimed(ctx context.Context, operation, description string, threshold time.Duration) *timedSpan {
	span := childSpan(ctx, operation, description)
	if span == nil {
		return nil
	}
	return &timedSpan{Span: span, start: time.Now(), threshold: threshold}
}

// finish failed 为 true 时标记为内部错误，err 仅作为附加数据
func (s *timedSpan) finish(errKey string, err error, failed bool) {
	if s == nil {
		return
	}
	if s.threshold > 0 && time.Since(s.start) < s.threshold {
		s.Sampled = sentry.SampledFalse
	}
	if err != nil {
		s.SetData(errKey, err.Error())
	}
	if failed {
		s.Status = sentry.SpanStatusInternalError
	} else {
		s.Status = sentry.SpanStatusOK
	}
	s.Finish()
}

func thresholdMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
