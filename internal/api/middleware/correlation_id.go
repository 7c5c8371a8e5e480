package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderCorrelationID 客户端每个请求都会带上。
const HeaderCorrelationID = "X-Correlation-ID"

const (
	correlationIDKey    = "correlationID"
	maxCorrelationIDLen = 128
)

// CorrelationIDMiddleware 沿用客户端给出的 Correlation ID，缺失或过长时重新生成。
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderCorrelationID))
		if id == "" || len(id) > maxCorrelationIDLen {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Header(HeaderCorrelationID, id)

		c.Next()
	}
}

// GetCorrelationID 从上下文中取出 Correlation ID。
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}
