package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderInternalSecret 内部接口（/metrics 抓取）使用的密钥头。
const HeaderInternalSecret = "X-Internal-Secret"

// InternalSecretMiddleware 要求请求携带内部密钥。secret 为空时不做限制。
func InternalSecretMiddleware(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token := strings.TrimSpace(c.GetHeader(HeaderInternalSecret))
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
			return
		}
		c.Next()
	}
}
