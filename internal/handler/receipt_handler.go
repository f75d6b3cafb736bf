package handler

import (
	"errors"
	"io"

	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ReceiptHandler 已读与未读数请求处理器
type ReceiptHandler struct {
	receiptSvc service.ReceiptService
	notifySvc  service.NotifyService
}

// NewReceiptHandler 创建已读处理器实例
func NewReceiptHandler(receiptSvc service.ReceiptService, notifySvc service.NotifyService) *ReceiptHandler {
	return &ReceiptHandler{receiptSvc: receiptSvc, notifySvc: notifySvc}
}

// MarkRead 显式标记已读，不受被动已读节流限制
// POST /chat/conversation/:id/read
// 请求体: request.MarkReadRequest，messageIds 为空时标记整个会话
// 响应: respond.MarkReadRespond
func (h *ReceiptHandler) MarkRead(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	// 空请求体等同于 messageIds 为空
	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		HandleParamError(c, err)
		return
	}

	var (
		remaining int
		err       error
	)
	if len(req.MessageIds) == 0 {
		remaining, err = h.receiptSvc.MarkConversationRead(c.Request.Context(), actor, c.Param("id"))
	} else {
		remaining, err = h.receiptSvc.MarkRead(c.Request.Context(), actor, c.Param("id"), req.MessageIds)
	}
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.MarkReadRespond{Remaining: remaining})
}

// UnreadCount 未读会话数（角标）
// GET /chat/unreadCount
// 响应: respond.UnreadCountRespond
func (h *ReceiptHandler) UnreadCount(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	n, err := h.notifySvc.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.UnreadCountRespond{Count: n})
}
