// Package client 通过 HTTP 调用远端简历存储与认证服务。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"resumeBuilder/internal/session"
)

// 与服务端约定的请求/响应头。
const (
	HeaderAuthorization  = "Authorization"
	HeaderRefreshToken   = "RefreshToken"
	HeaderNewAccessToken = "new-access-token"
	HeaderCorrelationID  = "X-Correlation-ID"
)

const maxErrorBody = 64 << 10

// StatusError 非 2xx 响应，携带服务端 message。
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned status %d", e.Status)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Status, e.Message)
}

// ServerMessage 返回服务端给出的提示。
func (e *StatusError) ServerMessage() string { return e.Message }

// StatusCode 返回 HTTP 状态码。
func (e *StatusError) StatusCode() int { return e.Status }

// Unwrap 401/403 归为 ErrAuthExpired，其余归为 ErrRemoteUnavailable。
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return session.ErrAuthExpired
	}
	return session.ErrRemoteUnavailable
}

// Option 配置 HTTP 客户端。
type Option func(*base)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.http = c }
}

// WithLogger 设置日志。
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) { b.logger = logger }
}

type base struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func newBase(baseURL string, timeout time.Duration, opts []Option) base {
	b := base{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// do 发送 JSON 请求。out 为 nil 时忽略响应体；返回响应头供调用方读取刷新后的令牌。
func (b base) do(ctx context.Context, method, path string, creds *session.Credentials, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	correlationID := uuid.NewString()
	req.Header.Set(HeaderCorrelationID, correlationID)
	if creds != nil {
		req.Header.Set(HeaderAuthorization, "Bearer "+creds.AccessToken)
		if creds.RefreshToken != "" {
			req.Header.Set(HeaderRefreshToken, "Refresh "+creds.RefreshToken)
		}
	}

	log := b.logger.With(
		slog.String("correlation_id", correlationID),
		slog.String("method", method),
		slog.String("path", path),
	)

	resp, err := b.http.Do(req)
	if err != nil {
		log.Warn("request failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s %s: %w: %v", method, path, session.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
		log.Info("request rejected", slog.Int("status", resp.StatusCode))
		return resp.Header, statusErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode response: %w: %v", session.ErrRemoteUnavailable, err)
		}
	}
	log.Debug("request completed", slog.Int("status", resp.StatusCode))
	return resp.Header, nil
}

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body messageBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// IsAuthExpired 是 errors.Is(err, session.ErrAuthExpired) 的简写。
func IsAuthExpired(err error) bool { return errors.Is(err, session.ErrAuthExpired) }
