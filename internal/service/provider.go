// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"support_chat_server/internal/config"
	"support_chat_server/internal/dao/mysql/repository"
	"support_chat_server/internal/infrastructure/mq"
	"support_chat_server/internal/service/conversation"
	"support_chat_server/internal/service/health"
	"support_chat_server/internal/service/message"
	"support_chat_server/internal/service/notify"
	"support_chat_server/internal/service/receipt"

	"github.com/redis/go-redis/v9"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层与 WebSocket 网关通过它访问业务逻辑
type Services struct {
	Conversation ConversationService
	Message      MessageService
	Receipt      ReceiptService
	Notify       NotifyService
	Health       HealthService
}

// Deps 构造 Services 需要的基础设施
type Deps struct {
	Repos *repository.Repositories
	Bus   mq.EventBus
	Redis *redis.Client // 为空时已读节流使用进程内窗口
	Chat  config.ChatConfig
}

// NewServices 创建并注入所有 Service 实例
func NewServices(deps Deps) *Services {
	throttle := receipt.NewThrottle(deps.Redis, deps.Chat.ReadThrottle())

	return &Services{
		Conversation: conversation.NewConversationService(deps.Repos, deps.Bus, deps.Chat),
		Message:      message.NewMessageService(deps.Repos, deps.Bus),
		Receipt:      receipt.NewReceiptService(deps.Repos, deps.Bus, throttle, deps.Chat.ReadDelay(), deps.Chat.ReadThrottle()),
		Notify:       notify.NewNotifyService(deps.Repos, deps.Bus, deps.Chat.SubscribeTimeout()),
		Health:       health.NewHealthService(deps.Repos, deps.Redis),
	}
}
