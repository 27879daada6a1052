package middleware

import (
	"net/http"
	"strings"

	"hobby_forum/pkg/model"
	"hobby_forum/pkg/response"
	"hobby_forum/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 上下文中的身份字段
const (
	CtxUserID = "userID"
	CtxRole   = "role"
)

// AuthMiddleware JWT认证中间件
// token 由外部身份服务签发，这里只校验签名与有效期
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrAuthFailed, "Authorization header is required")
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Abort(c, http.StatusUnauthorized, response.ErrAuthFailed, "Invalid authorization header format")
			return
		}

		claims, err := utils.ParseToken(secret, parts[1])
		if err != nil || claims.UserID == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			return
		}

		// 将 userID 和 role 存入上下文
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// ModeratorMiddleware 版主及以上权限，必须在 AuthMiddleware 之后使用
func ModeratorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserID); !ok {
			response.Abort(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			return
		}
		if !CurrentActor(c).IsModerator() {
			response.Abort(c, http.StatusForbidden, response.ErrNoPermission, "Moderator permission required")
			return
		}
		c.Next()
	}
}

// CurrentActor 当前请求的已认证用户
func CurrentActor(c *gin.Context) model.Actor {
	return model.Actor{
		UserID: c.GetString(CtxUserID),
		Role:   c.GetInt(CtxRole),
	}
}
