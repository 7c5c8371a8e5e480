package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/database"
)

// LoginLimits 登录限流参数。
type LoginLimits struct {
	PerHour       int
	LockThreshold int
	LockTTL       time.Duration
}

// AuthHandler 处理注册、登录与退出。
type AuthHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	blacklist   *auth.RefreshBlacklist
	limiter     *loginLimiter
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, limits LoginLimits) *AuthHandler {
	return &AuthHandler{
		db:          db,
		authService: authService,
		blacklist:   auth.NewRefreshBlacklist(redisClient),
		limiter: &loginLimiter{
			redis:         redisClient,
			perHour:       limits.PerHour,
			lockThreshold: limits.LockThreshold,
			lockTTL:       limits.LockTTL,
			now:           time.Now,
		},
	}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// normalizedEmail 在去空白、转小写之后再做格式校验。
type normalizedEmail struct {
	Email string `binding:"required,email,max=255"`
}

// Signup 创建新用户账号。
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "name, a valid email and a password of at least 6 characters are required")
		return
	}

	email := normalizeEmail(req.Email)
	if err := binding.Validator.ValidateStruct(normalizedEmail{Email: email}); err != nil {
		BadRequest(c, "name, a valid email and a password of at least 6 characters are required")
		return
	}
	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		logger.Info("signup conflict: user already exists")
		Conflict(c, "User already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("signup lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	Message(c, http.StatusCreated, "User registered successfully")
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginResponse struct {
	Message      string       `json:"message"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         userResponse `json:"user"`
}

// Login 校验口令并返回令牌对。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "email and password are required")
		return
	}

	email := normalizeEmail(req.Email)
	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	if !h.limiter.allow(ctx, c.ClientIP(), email) {
		TooManyRequests(c, "Too many login attempts, try again later")
		return
	}
	if h.limiter.locked(ctx, email) {
		TooManyRequests(c, "Account temporarily locked")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: user not found")
			h.recordFailure(c, email)
			Error(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.authService.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.recordFailure(c, email)
		Error(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.limiter.reset(ctx, email)

	tokenPair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user logged in", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusOK, loginResponse{
		Message:      "Login successful",
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		User: userResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	})
}

// Logout 将请求头中的刷新令牌加入黑名单。
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, ok := middleware.ParseRefreshHeader(c.GetHeader(middleware.HeaderRefreshToken))
	if !ok {
		BadRequest(c, "refresh token missing")
		return
	}

	logger := h.loggerFromContext(c)
	claims, err := h.authService.ValidateTyped(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		logger.Info("logout token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if err := h.blacklist.Revoke(c.Request.Context(), claims, h.authService.RefreshTokenTTL()); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user logged out", slog.Uint64("user_id", uint64(claims.UserID)))
	Message(c, http.StatusOK, "Logged out")
}

func (h *AuthHandler) recordFailure(c *gin.Context, email string) {
	if err := h.limiter.recordFailure(c.Request.Context(), email); err != nil {
		h.loggerFromContext(c).Warn("record login failure failed", slog.Any("error", err))
	}
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContext(c)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
