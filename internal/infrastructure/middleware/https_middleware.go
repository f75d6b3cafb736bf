package middleware

import (
	"strconv"

	"support_chat_server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// SecureHeaders 安全响应头，forceTLS 开启时同时把 HTTP 重定向到 HTTPS
// 非 release 模式下 secure 跳过所有检查
func SecureHeaders(conf config.MainConfig) gin.HandlerFunc {
	opts := secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		IsDevelopment:      conf.Mode != "release",
	}
	if conf.ForceTLS {
		opts.SSLRedirect = true
		opts.SSLHost = conf.Host + ":" + strconv.Itoa(conf.Port)
		opts.STSSeconds = 31536000
	}
	secureMiddleware := secure.New(opts)

	return func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			// 已写入重定向响应
			zap.L().Debug("TLS 重定向", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Abort()
			return
		}
		c.Next()
	}
}
