package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Snapshot 一次推送的内容
// 读取失败时 Value 为零值，Err 说明原因，订阅继续有效
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Subscription 一个长期存在的订阅
// 每个订阅一个协程，只保留最新的快照，消费慢时旧快照被丢弃
type Subscription[T any] struct {
	out     chan Snapshot[T]
	trigger chan struct{}
	stopped chan struct{}

	cancel     context.CancelFunc
	unregister func()
	cancelOnce sync.Once
}

// C 快照通道，Cancel 后关闭
func (s *Subscription[T]) C() <-chan Snapshot[T] {
	return s.out
}

// Cancel 取消订阅，返回后不会再有新的快照
// 可重复调用
func (s *Subscription[T]) Cancel() {
	s.cancelOnce.Do(func() {
		s.unregister()
		s.cancel()
		<-s.stopped
	})
}

// loader 读取一次最新数据
type loader[T any] func(ctx context.Context) (T, error)

// subscribe 注册到事件总线，relevant 判断事件是否需要重新加载
// 首次加载受 timeout 限制，之后每个相关事件触发一次重新加载，重复事件会被合并
func subscribe[T any](bus mq.EventBus, relevant func(mq.ChangeEvent) bool, load loader[T], timeout time.Duration) *Subscription[T] {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription[T]{
		out:     make(chan Snapshot[T], 1),
		trigger: make(chan struct{}, 1),
		stopped: make(chan struct{}),
		cancel:  cancel,
	}
	sub.unregister = func() {}
	if bus != nil {
		sub.unregister = bus.Subscribe(func(e mq.ChangeEvent) {
			if relevant(e) {
				sub.notify()
			}
		})
	}
	go sub.loop(ctx, load, timeout)
	return sub
}

// notify 非阻塞，已有待处理的触发时直接合并
func (s *Subscription[T]) notify() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) loop(ctx context.Context, load loader[T], timeout time.Duration) {
	defer func() {
		// 丢弃未被消费的旧快照后关闭
		select {
		case <-s.out:
		default:
		}
		close(s.out)
		close(s.stopped)
	}()

	first := true
	for {
		snap := s.fetch(ctx, load, timeout, first)
		if ctx.Err() != nil {
			return
		}
		first = false
		s.deliver(snap)

		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		}
	}
}

func (s *Subscription[T]) fetch(ctx context.Context, load loader[T], timeout time.Duration, first bool) Snapshot[T] {
	loadCtx := ctx
	if first && timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	value, err := load(loadCtx)
	if err == nil {
		return Snapshot[T]{Value: value}
	}
	if errors.Is(loadCtx.Err(), context.DeadlineExceeded) && !errorx.HasCode(err, errorx.CodeTimeout) {
		err = errorx.Wrap(err, errorx.CodeTimeout, "订阅首次加载超时")
	}
	if ctx.Err() == nil {
		zap.L().Warn("订阅加载失败", zap.Int("code", errorx.GetCode(err)), zap.Error(err))
	}
	var zero T
	return Snapshot[T]{Value: zero, Err: err}
}

// deliver 只有 loop 协程发送，清空旧值后一定能写入
func (s *Subscription[T]) deliver(snap Snapshot[T]) {
	select {
	case <-s.out:
	default:
	}
	s.out <- snap
}
