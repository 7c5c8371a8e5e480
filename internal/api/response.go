package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error 错误响应统一为 {"message": ...}，客户端直接展示 message。
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// Message 成功响应也只带一条提示。
func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }
func TooManyRequests(c *gin.Context, msg string) {
	Error(c, http.StatusTooManyRequests, msg)
}
