package receipt

import (
	"context"
	"sync"
	"time"

	redisdao "support_chat_server/internal/dao/redis"
	"support_chat_server/pkg/constants"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Throttle 被动已读节流，key 为会话与读者角色
type Throttle interface {
	// Allow 当前窗口内是否还允许一次被动已读
	Allow(ctx context.Context, key string) bool
}

// NewThrottle 配置了 Redis 时多实例共享窗口，否则使用进程内窗口
func NewThrottle(client *redis.Client, window time.Duration) Throttle {
	if client == nil {
		return NewLocalThrottle(window)
	}
	return &redisThrottle{
		limiter: redisdao.NewFixedWindowLimiter(client, constants.READ_THROTTLE_KEY_PREFIX),
		window:  window,
	}
}

type redisThrottle struct {
	limiter *redisdao.FixedWindowLimiter
	window  time.Duration
}

// Allow Redis 不可用时放行，节流失效只会多写几次已读
func (t *redisThrottle) Allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, constants.REDIS_TIMEOUT*time.Second)
	defer cancel()
	ok, err := t.limiter.Allow(ctx, key, 1, t.window)
	if err != nil {
		zap.L().Warn("已读节流检查失败，放行", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// LocalThrottle 进程内固定窗口
type LocalThrottle struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

// NewLocalThrottle 创建进程内节流器
func NewLocalThrottle(window time.Duration) *LocalThrottle {
	return &LocalThrottle{
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow 距离上次放行超过 window 才放行
func (t *LocalThrottle) Allow(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.window {
		return false
	}
	// 顺带清理过期的 key
	for k, ts := range t.last {
		if now.Sub(ts) >= t.window {
			delete(t.last, k)
		}
	}
	t.last[key] = now
	return true
}
