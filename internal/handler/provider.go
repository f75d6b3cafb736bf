// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"support_chat_server/internal/gateway/websocket"
	"support_chat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Conversation *ConversationHandler
	Message      *MessageHandler
	Receipt      *ReceiptHandler
	Health       *HealthHandler
	Ws           *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
// gateway 为空时不注册 WebSocket 入口
func NewHandlers(svc *service.Services, gateway *websocket.Gateway) *Handlers {
	h := &Handlers{
		Conversation: NewConversationHandler(svc.Conversation),
		Message:      NewMessageHandler(svc.Message),
		Receipt:      NewReceiptHandler(svc.Receipt, svc.Notify),
		Health:       NewHealthHandler(svc.Health),
	}
	if gateway != nil {
		h.Ws = NewWsHandler(gateway)
	}
	return h
}
