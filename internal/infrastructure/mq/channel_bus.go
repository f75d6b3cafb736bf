package mq

import (
	"context"
	"sync"

	"support_chat_server/pkg/constants"

	"go.uber.org/zap"
)

// ChannelBus 单机模式下的事件总线
// 所有事件经过一个缓冲通道，由 Start 中的循环串行分发给订阅者
type ChannelBus struct {
	events chan ChangeEvent
	done   chan struct{}

	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextId   uint64

	closeOnce sync.Once
}

var _ EventBus = (*ChannelBus)(nil)

// NewChannelBus 创建 ChannelBus 实例
func NewChannelBus() *ChannelBus {
	return &ChannelBus{
		events:   make(chan ChangeEvent, constants.EVENT_BUS_SIZE),
		done:     make(chan struct{}),
		handlers: make(map[uint64]Handler),
	}
}

// Publish 将事件放入缓冲通道
func (b *ChannelBus) Publish(ctx context.Context, event ChangeEvent) error {
	select {
	case <-b.done:
		return ErrBusClosed
	default:
	}
	select {
	case b.events <- event:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe 注册回调
func (b *ChannelBus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextId
	b.nextId++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Start 分发循环
func (b *ChannelBus) Start() {
	for {
		select {
		case event := <-b.events:
			b.dispatch(event)
		case <-b.done:
			return
		}
	}
}

func (b *ChannelBus) dispatch(event ChangeEvent) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, event)
	}
}

// safeCall 单个订阅者 panic 不影响其他订阅者
func (b *ChannelBus) safeCall(h Handler, event ChangeEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("事件订阅者 panic",
				zap.Any("recover", rec),
				zap.String("type", string(event.Type)),
				zap.String("conversation_id", event.ConversationId),
			)
		}
	}()
	h(event)
}

// Close 停止分发循环，之后的 Publish 返回 ErrBusClosed
func (b *ChannelBus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
