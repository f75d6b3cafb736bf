package handler

import (
	"context"
	"time"

	"support_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// pingTimeout 健康检查的最长等待
const pingTimeout = 3 * time.Second

// HealthHandler 健康检查处理器
type HealthHandler struct {
	healthSvc service.HealthService
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(healthSvc service.HealthService) *HealthHandler {
	return &HealthHandler{healthSvc: healthSvc}
}

// Ping GET /health/ping
func (h *HealthHandler) Ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()
	report, err := h.healthSvc.Ping(ctx)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, report)
}
