package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"avalon-be/internal/api/http"
	"avalon-be/internal/config"
	"avalon-be/internal/logger"
	"avalon-be/internal/state"
	"avalon-be/internal/store"
	"avalon-be/internal/telemetry"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel, cfg.LogFormat)
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 链路追踪
	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		zap.L().Fatal("初始化链路追踪失败", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zap.L().Warn("关闭链路追踪失败", zap.Error(err))
		}
	}()

	// 打开存储
	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		zap.L().Fatal("打开存储失败", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer st.Close()

	// 组装应用状态
	appState := state.NewAppState(cfg, st)

	// 定期清理过期的待确认提名
	appState.Sweeper.Start()
	defer appState.Sweeper.Stop()

	// 启动服务器
	if err := http.RunServer(ctx, appState); err != nil {
		zap.L().Error("服务器异常退出", zap.Error(err))
	}
}
