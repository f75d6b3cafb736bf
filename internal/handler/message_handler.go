package handler

import (
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息请求处理器
type MessageHandler struct {
	messageSvc service.MessageService
}

// NewMessageHandler 创建消息处理器实例
func NewMessageHandler(messageSvc service.MessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// List 获取会话消息，按发送时间升序
// GET /chat/conversation/:id/messages
// 响应: []respond.MessageRespond
func (h *MessageHandler) List(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.messageSvc.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewMessageListRespond(list))
}

// Send 发送消息
// POST /chat/conversation/:id/messages
// 请求体: request.SendMessageRequest
// 响应: respond.MessageRespond
func (h *MessageHandler) Send(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	content, err := model.NewContent(model.MessageKind(req.Kind), req.Body, req.AttachmentUrl)
	if err != nil {
		HandleError(c, err)
		return
	}
	msg, err := h.messageSvc.Send(c.Request.Context(), c.Param("id"), actor, content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewMessageRespond(msg))
}
