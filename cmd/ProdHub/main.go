package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	https_server "ProdHub/api/http"
	"ProdHub/internal/config"
	"ProdHub/pkg/redis"
	"ProdHub/pkg/zlog"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()
	host := conf.MainConfig.Host
	port := conf.MainConfig.Port

	ctx, cancel := context.WithCancel(context.Background())

	// 2. 启动 HTTP 服务
	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		zlog.Info(fmt.Sprintf("服务器正在启动，监听地址: %s", addr))
		// 目前使用 HTTP 启动。如果需要 HTTPS，请配置证书并使用 GE.RunTLS
		if err := https_server.GE.Run(addr); err != nil {
			zlog.Fatal("服务器启动失败: " + err.Error())
			return
		}
	}()

	// 3. 启动嵌入 worker 轮询
	if conf.AIConfig.Embedding.Enabled && https_server.Worker != nil {
		go func() {
			if err := https_server.Worker.Run(ctx); err != nil && ctx.Err() == nil {
				zlog.Error("embed worker exited: " + err.Error())
			}
		}()
	}

	// 4. 启动 Kafka 变更消费
	if https_server.ChangeConsumer != nil && https_server.ChangeHandler != nil {
		go func() {
			if err := https_server.ChangeConsumer.Run(ctx, https_server.ChangeHandler); err != nil && ctx.Err() == nil {
				zlog.Error("change consumer exited: " + err.Error())
			}
		}()
	}

	// 5. 启动定时任务
	if https_server.Scheduler != nil {
		https_server.Scheduler.Start()
	}

	// 6. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 等待退出信号
	<-quit

	zlog.Info("正在关闭服务器...")
	cancel()
	if https_server.Scheduler != nil {
		https_server.Scheduler.Stop()
	}
	if https_server.ChangeConsumer != nil {
		_ = https_server.ChangeConsumer.Close()
	}
	_ = redis.Close()
	zlog.Sync()

	zlog.Info("服务器已关闭")
}
