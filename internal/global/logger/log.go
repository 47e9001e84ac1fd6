package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"meetup-backend/config"

	sentryslog "github.com/getsentry/sentry-go/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "meetup-backend"

var (
	instance *slog.Logger
	once     sync.Once
)

// multiHandler 将日志同时发送到多个 handler
type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return newMultiHandler(handlers...)
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return newMultiHandler(handlers...)
}

func baseWriter(cfg *config.Config) io.Writer {
	if cfg.Mode == config.ModeRelease && cfg.Log.FilePath != "" {
		return &lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}
	}
	return os.Stdout
}

// Get 获取全局 Logger 实例
func Get() *slog.Logger {
	once.Do(func() {
		cfg := config.Get()
		opts := &slog.HandlerOptions{
			AddSource: cfg.Mode == config.ModeRelease,
			Level:     getLogLevel(cfg.Log.Level),
		}

		var handler slog.Handler
		if cfg.Mode == config.ModeRelease {
			// release 模式输出 JSON，写文件时启用轮转
			handler = slog.NewJSONHandler(baseWriter(cfg), opts)
		} else {
			handler = slog.NewTextHandler(os.Stdout, opts)
		}

		if cfg.Sentry.Dsn != "" {
			sentryHandler := sentryslog.Option{
				// Error 级别作为 Sentry Event 上报，Warn 以上作为 Sentry Log
				EventLevel: []slog.Level{slog.LevelError},
				LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
				AddSource:  cfg.Mode == config.ModeRelease,
			}.NewSentryHandler(context.Background())
			handler = newMultiHandler(handler, sentryHandler)
		}

		instance = slog.New(handler).With(
			"app_name", appName,
			"env", string(cfg.Mode),
		)
	})
	return instance
}

// New 创建带模块字段的 Logger
func New(module string) *slog.Logger {
	return Get().With("module", module)
}

// RequestInfo 是 gin.Context 中日志需要的部分
type RequestInfo interface {
	ClientIP() string
	GetHeader(string) string
	GetString(string) string
}

// RequestIDKey 请求 ID 在 gin.Context 中的键
const RequestIDKey = "request_id"

// WithContext 为业务日志附带请求 ID 与客户端 IP
func WithContext(base *slog.Logger, c RequestInfo) *slog.Logger {
	l := base.With("client_ip", c.ClientIP())
	if id := c.GetString(RequestIDKey); id != "" {
		l = l.With(RequestIDKey, id)
	}
	if forwardedFor := c.GetHeader("X-Forwarded-For"); forwardedFor != "" {
		l = l.With("x_forwarded_for", forwardedFor)
	}
	return l
}

// getLogLevel 将字符串级别转换为 slog.Level
func getLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
