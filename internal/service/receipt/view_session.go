package receipt

import (
	"context"
	"sync"
	"time"

	"support_chat_server/internal/model"

	"go.uber.org/zap"
)

// Marker 执行实际的已读写入
type Marker interface {
	MarkConversationRead(ctx context.Context, actor model.Identity, conversationId string) (int, error)
}

// ViewSession 一个正在显示的会话界面
//
// 界面可见 delay 之后才开始被动已读；之后每次 Signal（新消息到达）触发一次被动已读，
// 同一会话 window 内最多写一次，被节流的信号合并为窗口结束后的一次补写。
// MarkNow 为用户显式操作，不受节流限制。Close 停止所有定时器并取消进行中的写入。
type ViewSession struct {
	marker   Marker
	throttle Throttle
	actor    model.Identity
	convId   string
	window   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ready   bool // delay 已过
	running bool // 有被动已读正在执行
	pending bool // 执行期间又收到信号
	closed  bool
	delayT  *time.Timer
	retryT  *time.Timer
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// NewViewSession 创建并启动延迟计时
func NewViewSession(marker Marker, throttle Throttle, actor model.Identity, conversationId string, delay, window time.Duration) *ViewSession {
	ctx, cancel := context.WithCancel(context.Background())
	v := &ViewSession{
		marker:   marker,
		throttle: throttle,
		actor:    actor,
		convId:   conversationId,
		window:   window,
		ctx:      ctx,
		cancel:   cancel,
	}
	// 回调先拿锁，delay 为 0 时也只能看到赋值之后的 delayT
	v.mu.Lock()
	v.delayT = time.AfterFunc(delay, func() {
		v.mu.Lock()
		v.ready = true
		v.delayT = nil
		v.mu.Unlock()
		v.Signal()
	})
	v.mu.Unlock()
	return v
}

// Signal 通知会话内容有变化，需要时触发一次被动已读，不阻塞调用方
func (v *ViewSession) Signal() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || !v.ready {
		return
	}
	if v.running {
		v.pending = true
		return
	}
	v.running = true
	v.wg.Add(1)
	go v.run()
}

func (v *ViewSession) run() {
	defer v.wg.Done()
	for {
		v.passive()

		v.mu.Lock()
		if v.pending && !v.closed {
			v.pending = false
			v.mu.Unlock()
			continue
		}
		v.running = false
		v.mu.Unlock()
		return
	}
}

func (v *ViewSession) passive() {
	key := v.convId + ":" + string(v.actor.Role)
	if !v.throttle.Allow(v.ctx, key) {
		v.scheduleRetry()
		return
	}
	if _, err := v.marker.MarkConversationRead(v.ctx, v.actor, v.convId); err != nil && v.ctx.Err() == nil {
		zap.L().Warn("被动已读失败", zap.String("conversation_id", v.convId), zap.Error(err))
	}
}

// scheduleRetry 窗口结束后补一次，期间的信号都合并到这一次
func (v *ViewSession) scheduleRetry() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.retryT != nil {
		return
	}
	v.retryT = time.AfterFunc(v.window, func() {
		v.mu.Lock()
		v.retryT = nil
		v.mu.Unlock()
		v.Signal()
	})
}

// MarkNow 立即标记已读，不经过节流
// 会话已关闭时返回 context.Canceled
func (v *ViewSession) MarkNow(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(v.ctx, cancel)
	defer stop()

	if err := v.ctx.Err(); err != nil {
		return 0, err
	}
	return v.marker.MarkConversationRead(ctx, v.actor, v.convId)
}

// Close 停止定时器并取消进行中的写入，返回时不再有被动已读在执行
// 可重复调用
func (v *ViewSession) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		if v.delayT != nil {
			v.delayT.Stop()
			v.delayT = nil
		}
		if v.retryT != nil {
			v.retryT.Stop()
			v.retryT = nil
		}
		v.mu.Unlock()

		v.cancel()
		v.wg.Wait()
	})
}
