// Package redis 提供 Redis 连接初始化与基于 Redis 的限流实现
// 使用 github.com/redis/go-redis/v9 作为底层客户端
package redis

import (
	"context"
	"strconv"
	"time"

	"support_chat_server/internal/config"
	"support_chat_server/pkg/constants"
	"support_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Init 根据配置创建 Redis 客户端
// 未配置 Host 时返回 nil，调用方改用进程内实现
func Init(conf *config.RedisConfig) *redis.Client {
	if conf.Host == "" {
		zap.L().Info("未配置 Redis，已读节流使用进程内实现")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Host + ":" + strconv.Itoa(conf.Port),
		Password:     conf.Password,
		DB:           conf.Db,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  constants.REDIS_TIMEOUT * time.Second,
		ReadTimeout:  constants.REDIS_TIMEOUT * time.Second,
		WriteTimeout: constants.REDIS_TIMEOUT * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.REDIS_TIMEOUT*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// 启动时不可达不致命，限流器会放行并记录日志
		zap.L().Warn("Redis 探测失败", zap.String("addr", client.Options().Addr), zap.Error(err))
	}
	return client
}

// Ping 只读探测 Redis 连通性
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		if ctx.Err() != nil {
			return errorx.Wrap(err, errorx.CodeTimeout, "Redis 探测超时")
		}
		return errorx.Wrap(err, errorx.CodeCacheError, "Redis 不可达")
	}
	return nil
}
