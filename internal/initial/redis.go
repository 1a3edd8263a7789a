package initial

import (
	"context"
	"fmt"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/config"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/redis"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OpenRedis 未配置主机时返回 nil, nil；存储和脉冲共用这一个连接
func OpenRedis(conf *config.Config) (*redis.Client, error) {
	host := conf.RedisConfig.Host
	port := conf.RedisConfig.Port
	if host == "" {
		zlog.Info("Redis 未配置，跳过初始化")
		return nil, nil
	}
	if port == 0 {
		port = 6379
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	zlog.Info("Redis connecting", zap.String("addr", addr))

	client := redis.New(redis.Options{
		Addrs:        []string{addr},
		Password:     conf.RedisConfig.Password,
		DB:           conf.RedisConfig.DB,
		PoolSize:     conf.RedisConfig.PoolSize,
		MinIdleConns: conf.RedisConfig.MinIdleConns,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis ping %s", addr)
	}
	zlog.Info("Redis 连接成功", zap.String("addr", addr))
	return client, nil
}
