package client

import (
	"context"
	"net/http"
	"time"

	"resumeBuilder/internal/session"
)

// 认证接口路径。
const (
	PathSignup = "/users/signup"
	PathLogin  = "/users/login"
	PathLogout = "/users/logout"
)

// User 登录返回的用户信息。
type User struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginResult 登录结果。
type LoginResult struct {
	Message     string
	Credentials session.Credentials
	User        User
}

// AuthClient 调用注册、登录、退出接口。
type AuthClient struct {
	base
}

// NewAuthClient 构造认证客户端。
func NewAuthClient(baseURL string, timeout time.Duration, opts ...Option) *AuthClient {
	return &AuthClient{base: newBase(baseURL, timeout, opts)}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Signup 注册新用户，返回服务端提示。
func (c *AuthClient) Signup(ctx context.Context, name, email, password string) (string, error) {
	var body saveResponse
	if _, err := c.do(ctx, http.MethodPost, PathSignup, nil, signupRequest{Name: name, Email: email, Password: password}, &body); err != nil {
		return "", err
	}
	return body.Message, nil
}

// Login 用邮箱和密码换取令牌对。
func (c *AuthClient) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var body loginResponse
	if _, err := c.do(ctx, http.MethodPost, PathLogin, nil, loginRequest{Email: email, Password: password}, &body); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Message: body.Message,
		Credentials: session.Credentials{
			AccessToken:  body.AccessToken,
			RefreshToken: body.RefreshToken,
		},
		User: body.User,
	}, nil
}

// Logout 吊销刷新令牌。
func (c *AuthClient) Logout(ctx context.Context, creds session.Credentials) error {
	_, err := c.do(ctx, http.MethodPost, PathLogout, &creds, nil, nil)
	return err
}
