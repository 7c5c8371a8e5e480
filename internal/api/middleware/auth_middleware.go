package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/auth"
)

// 刷新流程使用的请求/响应头。
const (
	HeaderRefreshToken   = "RefreshToken"
	HeaderNewAccessToken = "new-access-token"
)

const userIDKey = "userID"

// RevocationChecker 查询刷新令牌是否已吊销。
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
// 访问令牌过期且请求携带有效的 RefreshToken 时签发新令牌，写入 new-access-token 响应头后继续处理。
func AuthMiddleware(authService *auth.AuthService, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"), "Bearer")
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateTyped(rawToken, auth.TokenTypeAccess)
		if err == nil {
			c.Set(userIDKey, claims.UserID)
			c.Next()
			return
		}
		if !errors.Is(err, auth.ErrTokenExpired) {
			abortUnauthorized(c)
			return
		}

		userID, ok := refreshAccess(c, authService, revoked)
		if !ok {
			abortUnauthorized(c)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func refreshAccess(c *gin.Context, authService *auth.AuthService, revoked RevocationChecker) (uint, bool) {
	log := LoggerFromContext(c)

	rawRefresh, ok := bearerToken(c.GetHeader(HeaderRefreshToken), "Refresh")
	if !ok {
		return 0, false
	}
	claims, err := authService.ValidateTyped(rawRefresh, auth.TokenTypeRefresh)
	if err != nil {
		log.Info("refresh token rejected", slog.Any("error", err))
		return 0, false
	}
	if claims.ID == "" {
		return 0, false
	}
	if revoked != nil {
		isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.Error("refresh blacklist lookup failed", slog.Any("error", err))
			return 0, false
		}
		if isRevoked {
			log.Info("refresh token revoked", slog.String("jti", claims.ID))
			return 0, false
		}
	}

	accessToken, err := authService.GenerateAccessToken(claims.UserID)
	if err != nil {
		log.Error("issue access token failed", slog.Any("error", err))
		return 0, false
	}
	c.Header(HeaderNewAccessToken, accessToken)
	log.Info("access token refreshed", slog.Uint64("user_id", uint64(claims.UserID)))
	return claims.UserID, true
}

func bearerToken(header, scheme string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], scheme) {
		return "", false
	}
	return parts[1], true
}

// UserIDFromContext 取出 AuthMiddleware 写入的用户 ID。
func UserIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// ParseRefreshHeader 解析 "Refresh <token>" 形式的请求头。
func ParseRefreshHeader(header string) (string, bool) {
	return bearerToken(header, "Refresh")
}
