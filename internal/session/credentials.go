package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credentials 一对不透明的访问令牌与刷新令牌。
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Valid 访问令牌非空即视为可用，过期由服务端判断。
func (c Credentials) Valid() bool { return c.AccessToken != "" }

// CredentialProvider 由调用方注入，负责凭证的读取、刷新与清除。
type CredentialProvider interface {
	Credentials() (Credentials, bool)
	// Refresh 保存服务端下发的新访问令牌。
	Refresh(accessToken string) error
	Clear() error
}

// MemoryCredentials 进程内凭证。
type MemoryCredentials struct {
	mu    sync.RWMutex
	creds Credentials
}

// NewMemoryCredentials 用初始凭证构造。
func NewMemoryCredentials(c Credentials) *MemoryCredentials {
	return &MemoryCredentials{creds: c}
}

func (m *MemoryCredentials) Credentials() (Credentials, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds, m.creds.Valid()
}

func (m *MemoryCredentials) Refresh(accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds.AccessToken = accessToken
	return nil
}

func (m *MemoryCredentials) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}

// Set 登录成功后写入新凭证。
func (m *MemoryCredentials) Set(c Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
}

// FileCredentials 把凭证保存在本地 JSON 文件中（权限 0600）。
type FileCredentials struct {
	mu   sync.Mutex
	path string
}

// NewFileCredentials path 的父目录会按需创建。
func NewFileCredentials(path string) *FileCredentials {
	return &FileCredentials{path: path}
}

// Path 返回凭证文件路径。
func (f *FileCredentials) Path() string { return f.path }

func (f *FileCredentials) Credentials() (Credentials, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.read()
	if err != nil {
		return Credentials{}, false
	}
	return c, c.Valid()
}

func (f *FileCredentials) Refresh(accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.read()
	if err != nil {
		return err
	}
	c.AccessToken = accessToken
	return f.write(c)
}

func (f *FileCredentials) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// Set 写入完整凭证。
func (f *FileCredentials) Set(c Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(c)
}

func (f *FileCredentials) read() (Credentials, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return c, nil
}

func (f *FileCredentials) write(c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
