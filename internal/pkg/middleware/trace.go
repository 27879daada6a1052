package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxTraceID 上下文中的追踪ID
const CtxTraceID = "traceID"

// TraceMiddleware 添加请求追踪ID
// 优先沿用上游传入的 X-Trace-ID，便于跨服务串联日志
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(CtxTraceID, traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}
