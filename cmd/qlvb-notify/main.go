package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	https_server "github.com/Phambanam99/qlvb-thanh-sub003/api/http"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/config"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()
	if err := zlog.Init(zlog.Options{
		LogPath:    conf.LogConfig.LogPath,
		Level:      conf.LogConfig.Level,
		MaxSizeMB:  conf.LogConfig.MaxSizeMB,
		MaxBackups: conf.LogConfig.MaxBackups,
		MaxAgeDays: conf.LogConfig.MaxAgeDays,
		Console:    conf.LogConfig.Console,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer zlog.Sync()
	if err := config.LoadError(); err != nil {
		zlog.Warn("配置文件加载失败，使用默认配置", zap.Error(err))
	}

	// 2. 组装并启动
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := https_server.NewApp(ctx, conf)
	if err != nil {
		zlog.Fatal("初始化失败", zap.Error(err))
	}
	errCh := app.Start(ctx)

	// 3. 优雅关闭
	select {
	case <-ctx.Done():
	case err := <-errCh:
		zlog.Error("服务器启动失败", zap.Error(err))
	}

	zlog.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("关闭 HTTP 服务出错", zap.Error(err))
	}
	zlog.Info("服务器已关闭")
}
