package redis

import (
	"context"
	"time"

	"support_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript 原子性执行 INCR 和 PEXPIRE
// 第一次访问时设置窗口过期时间，窗口内超过 limit 次即拒绝
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`)

// FixedWindowLimiter 基于 Redis 的固定窗口限流器
// 多实例共享同一个窗口
type FixedWindowLimiter struct {
	client *redis.Client
	prefix string
}

// NewFixedWindowLimiter 创建限流器，prefix 会拼接在每个 key 之前
func NewFixedWindowLimiter(client *redis.Client, prefix string) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, prefix: prefix}
}

// Allow 检查 key 在当前窗口内是否还允许通过
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	result, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, limit, ms).Int()
	if err != nil {
		return false, errorx.Wrapf(err, errorx.CodeCacheError, "redis 限流 key=%s", key)
	}
	return result == 1, nil
}
