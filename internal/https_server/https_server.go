// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件和路由
package https_server

import (
	"support_chat_server/internal/config"
	"support_chat_server/internal/handler"
	"support_chat_server/internal/infrastructure/logger"
	"support_chat_server/internal/infrastructure/middleware"
	"support_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 初始化 HTTP/HTTPS 服务器并返回 Gin 引擎实例
// 配置顺序：日志与恢复中间件、CORS、安全响应头、业务路由
func Init(handlers *handler.Handlers, mainConf config.MainConfig) *gin.Engine {
	if mainConf.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // 生产环境应指定具体域名
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// 由 Nginx 终止 SSL 时 forceTLS 保持关闭
	engine.Use(middleware.SecureHeaders(mainConf))

	rt := router.NewRouter(handlers)
	rt.RegisterRoutes(engine)

	return engine
}
