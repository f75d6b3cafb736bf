// Package router 提供 HTTP 路由注册
// 本文件定义客服会话相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterConversationRoutes 注册会话、消息与已读相关路由（需要认证）
func (rt *Router) RegisterConversationRoutes(rg *gin.RouterGroup) {
	chatGroup := rg.Group("/chat")
	{
		chatGroup.GET("/unreadCount", rt.handlers.Receipt.UnreadCount) // 未读会话数（角标）

		convGroup := chatGroup.Group("/conversation")
		{
			// ===== 生命周期 =====
			convGroup.POST("/open", rt.handlers.Conversation.Open)                // 顾客打开会话
			convGroup.POST("/start", rt.handlers.Conversation.Start)              // 客服发起会话
			convGroup.GET("/list", rt.handlers.Conversation.List)                 // 会话列表
			convGroup.GET("/:id", rt.handlers.Conversation.Get)                   // 会话详情
			convGroup.POST("/:id/status", rt.handlers.Conversation.SetStatus)     // 修改状态
			convGroup.POST("/:id/priority", rt.handlers.Conversation.SetPriority) // 修改优先级

			// ===== 消息 =====
			convGroup.GET("/:id/messages", rt.handlers.Message.List)  // 消息列表
			convGroup.POST("/:id/messages", rt.handlers.Message.Send) // 发送消息

			// ===== 已读 =====
			convGroup.POST("/:id/read", rt.handlers.Receipt.MarkRead) // 标记已读
		}
	}
}
