// Package mq 提供会话变更事件总线
// 写操作提交后发布事件，订阅者异步收到通知后自行重新加载
// 支持两种实现：ChannelBus（单机）和 KafkaBus（多实例广播）
package mq

import (
	"context"
	"errors"
	"time"
)

// EventType 变更事件类型
type EventType string

const (
	EventMessageCreated      EventType = "message_created"      // 新消息写入
	EventConversationChanged EventType = "conversation_changed" // 状态、优先级、接待客服变化或新建
	EventMessagesRead        EventType = "messages_read"        // 已读回执更新了未读数
)

// ChangeEvent 会话变更事件
// 只携带定位信息，订阅者据此判断是否相关，再从存储读取最新数据
type ChangeEvent struct {
	Type           EventType `json:"type"`
	ConversationId string    `json:"conversationId"`
	CustomerId     string    `json:"customerId"`
	MessageId      string    `json:"messageId,omitempty"`
	At             time.Time `json:"at"`
}

// Handler 事件回调，必须快速返回，不能阻塞分发协程
type Handler func(event ChangeEvent)

// ErrBusClosed 总线已关闭
var ErrBusClosed = errors.New("event bus closed")

// EventBus 变更事件总线
type EventBus interface {
	// Publish 发布事件，总线缓冲满时等待直到 ctx 结束
	Publish(ctx context.Context, event ChangeEvent) error
	// Subscribe 注册回调，返回的 cancel 可重复调用
	Subscribe(handler Handler) (cancel func())
	// Start 启动分发循环，阻塞直到 Close
	Start()
	// Close 停止分发并释放资源
	Close()
}
