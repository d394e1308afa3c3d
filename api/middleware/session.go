package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fyerfyer/doc-compression/internal/services"
)

// SessionID 从请求头读取会话ID，没有时生成新的会话ID
// 会话ID同时写回响应头，客户端在后续请求中携带即可继续同一会话
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionIDHeader)
		if sessionID == "" || len(sessionID) > 128 {
			sessionID = services.NewSessionID()
		}

		c.Set(sessionIDKey, sessionID)
		c.Header(SessionIDHeader, sessionID)

		c.Next()
	}
}

// GetSessionID 获取当前请求的会话ID
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
