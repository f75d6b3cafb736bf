// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"support_chat_server/internal/handler"
	"support_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器，持有 Handler 聚合
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 公开路由直接挂在 engine 上，其余路由统一经过 JWT 鉴权
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	rt.RegisterHealthRoutes(r)

	authed := r.Group("/")
	authed.Use(middleware.JWTAuth())
	{
		rt.RegisterConversationRoutes(authed)
		rt.RegisterWebSocketRoutes(authed)
	}
}
