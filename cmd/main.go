package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DealSync/internal/api"
	"DealSync/internal/app"
	"DealSync/internal/config"
	"DealSync/internal/database"
	"DealSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logrusLogger := logrus.New()
	logrusLogger.SetLevel(logrus.InfoLevel)
	logrusLogger.Info("配置文件加载成功")

	// 3. 连接数据库并组装服务
	a, err := app.New(cfg, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化失败: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logrusLogger.WithError(err).Warn("关闭资源失败")
		}
	}()

	if err := database.SeedStores(context.Background(), a.Catalog); err != nil {
		logrusLogger.Fatalf("写入内置商店失败: %v", err)
	}

	// 4. 进程内调度（可选，外部定时器走 /api/cron/sync-deals）
	var scheduler *service.Scheduler
	if cfg.Sync.InApp {
		scheduler = service.NewScheduler(a.Job, 30*time.Minute, logrusLogger)
		if err := scheduler.Schedule(cfg.Sync.Cron); err != nil {
			logrusLogger.Fatalf("%v", err)
		}
		scheduler.Start()
	}

	// 5. 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	logrusLogger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	// 6. 注册API路由
	api.RegisterRoutes(r, cfg.Auth,
		api.NewDealHandler(a.Query, logrusLogger),
		api.NewSyncHandler(a.Job, a.Tracker, a.Source, logrusLogger),
	)

	// 7. 启动服务（从配置读取端口），收到信号后优雅退出
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		logrusLogger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrusLogger.Fatalf("启动服务失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrusLogger.Info("收到退出信号，正在关闭服务…")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logrusLogger.WithError(err).Error("服务关闭失败")
	}
	logrusLogger.Info("服务已退出")
}
