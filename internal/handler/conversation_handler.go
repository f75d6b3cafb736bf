// Package handler 提供 HTTP 请求处理器
// 本文件处理会话生命周期相关的 API 请求
package handler

import (
	"support_chat_server/internal/dto/request"
	"support_chat_server/internal/dto/respond"
	"support_chat_server/internal/model"
	"support_chat_server/internal/service"
	"support_chat_server/internal/service/conversation"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 会话请求处理器
type ConversationHandler struct {
	conversationSvc service.ConversationService
}

// NewConversationHandler 创建会话处理器实例
func NewConversationHandler(conversationSvc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationSvc: conversationSvc}
}

// Open 顾客打开会话，已有进行中的会话时直接返回
// POST /chat/conversation/open
// 请求体: request.OpenConversationRequest
// 响应: respond.ConversationRespond
func (h *ConversationHandler) Open(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req request.OpenConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	conv, err := h.conversationSvc.GetOrCreate(c.Request.Context(), actor, conversation.OpenOptions{
		Category: model.Category(req.Category),
		OrderId:  req.OrderId,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}

// Start 客服为顾客发起会话
// POST /chat/conversation/start
// 请求体: request.StartConversationRequest
func (h *ConversationHandler) Start(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req request.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	customer := model.Identity{Id: req.CustomerId, Name: req.CustomerName, Email: req.CustomerEmail, Role: model.RoleCustomer}
	conv, err := h.conversationSvc.StartForCustomer(c.Request.Context(), actor, customer, conversation.OpenOptions{
		Category: model.Category(req.Category),
		OrderId:  req.OrderId,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}

// List 会话列表：顾客返回自己的，客服返回全部
// GET /chat/conversation/list
// 响应: []respond.ConversationRespond
func (h *ConversationHandler) List(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.conversationSvc.List(c.Request.Context(), actor)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationListRespond(list))
}

// Get 查询单个会话
// GET /chat/conversation/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	conv, err := h.conversationSvc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}

// SetStatus 修改会话状态
// POST /chat/conversation/:id/status
// 请求体: request.SetStatusRequest
func (h *ConversationHandler) SetStatus(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req request.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	var assign *model.Identity
	if req.Assign {
		assign = &actor
	}
	conv, err := h.conversationSvc.SetStatus(c.Request.Context(), actor, c.Param("id"), model.ConversationStatus(req.Status), assign)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}

// SetPriority 修改优先级
// POST /chat/conversation/:id/priority
// 请求体: request.SetPriorityRequest
func (h *ConversationHandler) SetPriority(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req request.SetPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	conv, err := h.conversationSvc.SetPriority(c.Request.Context(), actor, c.Param("id"), model.Priority(req.Priority))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}
