package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"meetup-backend/config"
	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/httpclient"
	"meetup-backend/internal/global/identity"
	"meetup-backend/internal/global/logger"
	"meetup-backend/internal/global/middleware"
	"meetup-backend/internal/global/pictureBed"
	"meetup-backend/internal/global/redisclient"
	"meetup-backend/internal/global/sentry"
	"meetup-backend/internal/module"
	"meetup-backend/tools"

	"github.com/gin-gonic/gin"
)

var log *slog.Logger

func Init() {
	config.Init()
	log = logger.New("Server")

	if err := sentry.Init(); err != nil {
		log.Error("Sentry 初始化失败", "error", err)
	}

	database.Init()
	redisclient.Init()
	httpclient.Init()
	identity.Init()
	pictureBed.Init()

	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Module: %s", m.GetName()))
		m.Init()
	}
}

func Run() {
	cfg := config.Get()
	gin.SetMode(string(cfg.Mode))
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(sentry.Middleware())
	r.Use(middleware.SentryEnrichIP())
	switch cfg.Mode {
	case config.ModeRelease:
		r.Use(middleware.Logger(logger.Get()))
	case config.ModeDebug:
		r.Use(gin.Logger())
	}
	r.Use(middleware.Cors())
	r.Use(middleware.Recovery())

	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Router: %s", m.GetName()))
		m.InitRouter(r.Group("/" + cfg.Prefix))
	}

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("服务启动", "addr", srv.Addr, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			tools.PanicOnErr(err)
		}
	}()

	<-ctx.Done()
	log.Info("收到退出信号，开始关闭服务")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("服务关闭失败", "error", err)
	}
	sentry.Flush(2 * time.Second)
}
