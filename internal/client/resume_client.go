package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/session"
)

// 简历存储接口路径。
const (
	PathGetResume    = "/resume/getresume"
	PathCreateResume = "/resume/create"
	PathUpdateResume = "/resume/update"
)

// ResumeClient 实现 session.Store。
type ResumeClient struct {
	base
}

var _ session.Store = (*ResumeClient)(nil)

// NewResumeClient baseURL 形如 http://localhost:8080。
func NewResumeClient(baseURL string, timeout time.Duration, opts ...Option) *ResumeClient {
	return &ResumeClient{base: newBase(baseURL, timeout, opts)}
}

type fetchResponse struct {
	Resume json.RawMessage `json:"resume"`
}

type saveResponse struct {
	Message string `json:"message"`
}

// Fetch 拉取当前用户的简历，{"resume": null} 返回 Document 为 nil。
func (c *ResumeClient) Fetch(ctx context.Context, creds session.Credentials) (session.FetchResult, error) {
	var body fetchResponse
	header, err := c.do(ctx, http.MethodGet, PathGetResume, &creds, nil, &body)
	if err != nil {
		return session.FetchResult{}, err
	}

	res := session.FetchResult{AccessToken: header.Get(HeaderNewAccessToken)}
	if len(body.Resume) == 0 || string(body.Resume) == "null" {
		return res, nil
	}
	doc, err := resume.Decode(body.Resume)
	if err != nil {
		return session.FetchResult{}, err
	}
	res.Document = &doc
	return res, nil
}

// Create 首次保存。
func (c *ResumeClient) Create(ctx context.Context, creds session.Credentials, doc resume.Document) (session.SaveResult, error) {
	return c.save(ctx, http.MethodPost, PathCreateResume, creds, doc)
}

// Update 覆盖已有简历。
func (c *ResumeClient) Update(ctx context.Context, creds session.Credentials, doc resume.Document) (session.SaveResult, error) {
	return c.save(ctx, http.MethodPut, PathUpdateResume, creds, doc)
}

func (c *ResumeClient) save(ctx context.Context, method, path string, creds session.Credentials, doc resume.Document) (session.SaveResult, error) {
	var body saveResponse
	header, err := c.do(ctx, method, path, &creds, doc, &body)
	if err != nil {
		return session.SaveResult{}, err
	}
	return session.SaveResult{
		Message:     body.Message,
		AccessToken: header.Get(HeaderNewAccessToken),
	}, nil
}
