package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/metrics"
)

// Deps 路由依赖。Enqueuer 与 Signer 为空时导出接口返回 503。
type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       redis.UniversalClient
	AuthService *auth.AuthService
	Enqueuer    TaskEnqueuer
	Signer      LinkSigner
	Logger      *slog.Logger
}

// NewRouter 构建 Gin 路由引擎并注册全部接口。
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware("/metrics", "/ws"),
		cors.New(corsConfig(cfg.API.AllowedOrigins)),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.InternalSecretMiddleware(cfg.API.MetricsSecret), metrics.Handler())

	blacklist := auth.NewRefreshBlacklist(deps.Redis)
	authMiddleware := middleware.AuthMiddleware(deps.AuthService, blacklist)

	authHandler := NewAuthHandler(deps.DB, deps.AuthService, deps.Redis, LoginLimits{
		PerHour:       cfg.Auth.LoginRateLimitPerHour,
		LockThreshold: cfg.Auth.LoginLockThreshold,
		LockTTL:       cfg.Auth.LoginLockTTL,
	})
	users := router.Group("/users")
	{
		users.POST("/signup", authHandler.Signup)
		users.POST("/login", authHandler.Login)
		users.POST("/logout", authHandler.Logout)
	}

	resumeHandler := NewResumeHandler(deps.DB, deps.Enqueuer, deps.Signer, ExportOptions{
		MaxRetry: cfg.Worker.MaxRetry,
		LinkTTL:  cfg.API.ExportLinkTTL,
	})
	resumes := router.Group("/resume")
	resumes.Use(authMiddleware)
	{
		resumes.GET("/getresume", resumeHandler.GetResume)
		resumes.POST("/create", resumeHandler.CreateResume)
		resumes.PUT("/update", resumeHandler.UpdateResume)
		resumes.GET("/preview", resumeHandler.PreviewResume)
		resumes.POST("/export", requireDeps(deps.Enqueuer != nil), resumeHandler.ExportResume)
		resumes.GET("/export/link", requireDeps(deps.Signer != nil), resumeHandler.GetExportLink)
	}

	wsHandler := NewWsHandler(deps.Redis, deps.AuthService, logger, cfg.API.AllowedOrigins)
	router.GET("/ws", wsHandler.HandleConnection)

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRefreshToken, middleware.HeaderCorrelationID},
		ExposeHeaders: []string{middleware.HeaderNewAccessToken, middleware.HeaderCorrelationID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func requireDeps(ok bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ok {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "PDF export is not configured"})
			return
		}
		c.Next()
	}
}
