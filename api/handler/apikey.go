package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader 请求携带模型API密钥的请求头
const APIKeyHeader = "X-API-Key"

// resolveAPIKey 依次从请求头、请求体和服务端配置中取API密钥
func resolveAPIKey(c *gin.Context, bodyKey, serverKey string) string {
	if key := strings.TrimSpace(c.GetHeader(APIKeyHeader)); key != "" {
		return key
	}
	if key := strings.TrimSpace(bodyKey); key != "" {
		return key
	}
	return strings.TrimSpace(serverKey)
}
