package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/tasks"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var errWsAuth = errors.New("websocket auth failed")

// WsHandler 鉴权后把 user_notify:<id> 频道上的导出通知推给客户端。
type WsHandler struct {
	redisClient redis.UniversalClient
	authService *auth.AuthService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler allowedOrigins 为空时只接受同源连接。
func NewWsHandler(redisClient redis.UniversalClient, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		redisClient: redisClient,
		authService: authService,
		logger:      logger,
		upgrader:    websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 第一条消息必须是 {"type":"auth","token":<access token>}。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userID, err := h.authenticate(conn)
	if err != nil {
		log.Info("websocket rejected", slog.Any("error", err))
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go drainReads(conn, cancel)

	if err := h.forward(ctx, conn, userID, log); err != nil {
		log.Info("websocket closed", slog.Any("error", err))
		return
	}
	log.Info("websocket closed")
}

func (h *WsHandler) authenticate(conn *websocket.Conn) (uint, error) {
	if err := conn.SetReadDeadline(time.Now().Add(wsAuthTimeout)); err != nil {
		return 0, err
	}
	var msg wsAuthMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return 0, errors.Join(errWsAuth, err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		return 0, errWsAuth
	}
	claims, err := h.authService.ValidateTyped(msg.Token, auth.TokenTypeAccess)
	if err != nil {
		return 0, errors.Join(errWsAuth, err)
	}
	return claims.UserID, conn.SetReadDeadline(time.Time{})
}

// drainReads 认证后客户端消息一律丢弃，读失败即视为断开。
func drainReads(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, userID uint, log *slog.Logger) error {
	channel := tasks.NotifyChannel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	log.Debug("subscribed", slog.String("channel", channel))

	messages := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("pubsub channel closed")
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return err
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}
