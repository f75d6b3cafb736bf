package handler

import (
	"support_chat_server/internal/gateway/websocket"

	"github.com/gin-gonic/gin"
)

// WsHandler WebSocket 连接处理器
type WsHandler struct {
	gateway *websocket.Gateway
}

// NewWsHandler 创建 WebSocket 处理器实例
func NewWsHandler(gateway *websocket.Gateway) *WsHandler {
	return &WsHandler{gateway: gateway}
}

// Connect 升级为 WebSocket 连接
// GET /wss?token=xxx
// 连接建立后推送未读会话数与会话列表，客户端通过上行动作打开具体会话
func (h *WsHandler) Connect(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	h.gateway.Serve(c.Writer, c.Request, actor)
}
