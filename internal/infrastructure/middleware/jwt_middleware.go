package middleware

import (
	"net/http"
	"strings"

	"support_chat_server/internal/model"
	"support_chat_server/pkg/errorx"
	"support_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// IdentityKey gin 上下文中保存当前身份的 key
const IdentityKey = "identity"

// JWTAuth JWT 认证中间件
// 验证身份提供方签发的 Access Token，并将身份信息存入上下文
// WebSocket 握手无法携带 Header，允许通过 ?token= 传递
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 获取 Token
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "请先登录")
			return
		}

		// 2. 验证 Token
		claims, err := jwt.ParseToken(token)
		if err != nil {
			abortUnauthorized(c, "Token 已过期或无效，请重新登录")
			return
		}

		// 3. 只接受会话双方的角色，system 身份由服务端内部使用
		role := model.Role(claims.Role)
		if role != model.RoleCustomer && role != model.RoleStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": errorx.CodePermissionDenied,
				"msg":  "未知的用户角色",
			})
			return
		}

		// 4. 将身份信息存入上下文，供后续 Handler 使用
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set(IdentityKey, model.Identity{
			Id:    claims.UserID,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  role,
		})
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
	})
}

// CurrentIdentity 读取 JWTAuth 写入的身份
func CurrentIdentity(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return model.Identity{}, false
	}
	identity, ok := v.(model.Identity)
	return identity, ok
}
