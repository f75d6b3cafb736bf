// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层与 WebSocket 网关调用
package service

import (
	"context"

	"support_chat_server/internal/model"
	"support_chat_server/internal/service/conversation"
	"support_chat_server/internal/service/health"
	"support_chat_server/internal/service/notify"
	"support_chat_server/internal/service/receipt"
)

// ConversationService 会话生命周期接口
// 处理会话的创建、状态流转、优先级调整和查询
type ConversationService interface {
	// GetOrCreate 顾客打开会话，已有进行中的会话直接返回
	GetOrCreate(ctx context.Context, customer model.Identity, opts conversation.OpenOptions) (*model.Conversation, error)
	// StartForCustomer 客服主动为顾客发起会话
	StartForCustomer(ctx context.Context, staff model.Identity, customer model.Identity, opts conversation.OpenOptions) (*model.Conversation, error)
	// SetStatus 客服修改会话状态，assign 不为空时记录接待客服
	SetStatus(ctx context.Context, actor model.Identity, conversationId string, status model.ConversationStatus, assign *model.Identity) (*model.Conversation, error)
	// SetPriority 客服修改优先级
	SetPriority(ctx context.Context, actor model.Identity, conversationId string, priority model.Priority) (*model.Conversation, error)
	// Get 查询单个会话
	Get(ctx context.Context, actor model.Identity, conversationId string) (*model.Conversation, error)
	// List 会话列表，按最近活动时间倒序
	List(ctx context.Context, actor model.Identity) ([]model.Conversation, error)
}

// MessageService 消息接口
type MessageService interface {
	// Send 发送消息
	Send(ctx context.Context, conversationId string, sender model.Identity, content model.MessageContent) (*model.Message, error)
	// List 会话消息，按 sentAt 升序
	List(ctx context.Context, actor model.Identity, conversationId string) ([]model.Message, error)
}

// ReceiptService 已读回执接口
type ReceiptService interface {
	// MarkRead 标记指定消息已读，返回剩余未读数
	MarkRead(ctx context.Context, actor model.Identity, conversationId string, messageIds []string) (int, error)
	// MarkConversationRead 标记会话内所有发给 actor 的消息已读
	MarkConversationRead(ctx context.Context, actor model.Identity, conversationId string) (int, error)
	// OpenView 会话界面可见，开始被动已读
	OpenView(actor model.Identity, conversationId string) *receipt.ViewSession
}

// NotifyService 实时推送接口，只读
type NotifyService interface {
	// UnreadCount 一次性读取未读会话数
	UnreadCount(ctx context.Context, actor model.Identity) (int, error)
	// SubscribeUnreadCount 订阅未读会话数
	SubscribeUnreadCount(actor model.Identity) (*notify.Subscription[int], error)
	// SubscribeConversations 订阅会话列表
	SubscribeConversations(actor model.Identity) (*notify.Subscription[[]model.Conversation], error)
	// SubscribeMessages 订阅单个会话的消息
	SubscribeMessages(ctx context.Context, actor model.Identity, conversationId string) (*notify.Subscription[[]model.Message], error)
}

// HealthService 存储连通性探测
type HealthService interface {
	// Ping 只读探测，不可达返回 CodeConnectivity，超时返回 CodeTimeout
	Ping(ctx context.Context) (*health.Report, error)
}
