package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes 注册健康检查路由（无需认证）
func (rt *Router) RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health/ping", rt.handlers.Health.Ping)
}
