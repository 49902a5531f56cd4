package initial

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ProdHub/internal/config"
	"ProdHub/pkg/redis"
	"ProdHub/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
)

const redisDialTimeout = 5 * time.Second

// Redis 只承载会话同步标记这类可丢数据，连不上时降级运行
func init() {
	conf := config.GetConfig()
	host := strings.TrimSpace(conf.RedisConfig.Host)
	if host == "" {
		zlog.Info("redis not configured, session sync markers disabled")
		return
	}

	client, err := connectRedis(&conf.RedisConfig, host)
	if err != nil {
		zlog.Error(fmt.Sprintf("redis connect failed, running without it: %v", err))
		return
	}
	redis.SetClient(client)
	zlog.Info(fmt.Sprintf("redis connected: %s:%d", host, redisPort(&conf.RedisConfig)))
}

func connectRedis(cfg *config.RedisConfig, host string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, redisPort(cfg)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func redisPort(cfg *config.RedisConfig) int {
	if cfg.Port == 0 {
		return 6379
	}
	return cfg.Port
}
