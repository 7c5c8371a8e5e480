// Package session 维护一次编辑会话：持有 Document，负责从远端加载与保存。
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"resumeBuilder/internal/resume"
)

var (
	// ErrRemoteUnavailable 网络或服务端故障。
	ErrRemoteUnavailable = errors.New("resume store unavailable")
	// ErrAuthExpired 服务端返回 401/403。
	ErrAuthExpired = errors.New("authentication expired")
)

// 默认提示文案。
const (
	MessageSaved         = "Resume saved successfully!"
	MessageSaveFailed    = "Failed to save resume"
	MessageLoaded        = "Resume loaded"
	MessageNotFound      = "No saved resume yet, starting fresh"
	MessageUnavailable   = "Could not reach the resume store, starting fresh"
	MessageReloadFailed  = "Could not reach the resume store, keeping the current resume"
	MessageReloadMissing = "No saved resume found, keeping the current resume"
	MessageAuthExpired   = "Session expired, please log in again"
	MessageBusy          = "A save is already in progress"
	MessageClosed        = "Session closed"
	MessageNotAuthorized = "Not logged in"
)

// State 会话状态。
type State int

const (
	StateLoading State = iota
	StateCreating
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateCreating:
		return "creating"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Status 一次 Load/Save 的结果分类。
type Status string

const (
	StatusOK          Status = "ok"
	StatusNotFound    Status = "not_found"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
	StatusAuthExpired Status = "auth_expired"
	StatusBusy        Status = "busy"
	StatusClosed      Status = "closed"
)

// Result 是展示给用户的状态与提示，同步器的错误都转换成 Result。
type Result struct {
	Status  Status
	Message string
}

// OK 报告操作是否成功。
func (r Result) OK() bool { return r.Status == StatusOK }

// FetchResult 远端 getresume 的响应。Document 为 nil 表示用户还没有简历。
type FetchResult struct {
	Document    *resume.Document
	AccessToken string
}

// SaveResult 远端 create/update 的响应。
type SaveResult struct {
	Message     string
	AccessToken string
}

// Store 是远端简历存储。
type Store interface {
	Fetch(ctx context.Context, creds Credentials) (FetchResult, error)
	Create(ctx context.Context, creds Credentials, doc resume.Document) (SaveResult, error)
	Update(ctx context.Context, creds Credentials, doc resume.Document) (SaveResult, error)
}

// Recorder 记录加载/保存的结果与耗时。
type Recorder interface {
	ObserveSync(op string, status string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSync(string, string, time.Duration) {}

// Option 配置 Synchronizer。
type Option func(*Synchronizer)

// WithLogger 设置日志。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

// WithLoadRetry Load 在服务不可用时最多重试 retries 次，指数退避。
func WithLoadRetry(retries uint64, base time.Duration) Option {
	return func(s *Synchronizer) {
		s.loadRetries = retries
		s.retryBase = base
	}
}

// WithRecorder 设置指标记录器。
func WithRecorder(r Recorder) Option {
	return func(s *Synchronizer) { s.recorder = r }
}

// Synchronizer 协调本地 Document 与远端存储，可并发调用。
type Synchronizer struct {
	store    Store
	creds    CredentialProvider
	logger   *slog.Logger
	recorder Recorder

	loadRetries uint64
	retryBase   time.Duration

	mu     sync.Mutex
	state  State
	doc    resume.Document
	busy   bool
	closed bool
}

// New 创建会话，初始为 Creating 状态和默认 Document。
func New(store Store, creds CredentialProvider, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:       store,
		creds:       creds,
		logger:      slog.Default(),
		recorder:    nopRecorder{},
		loadRetries: 2,
		retryBase:   200 * time.Millisecond,
		state:       StateCreating,
		doc:         resume.NewDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State 当前状态。
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy 有 Load 或 Save 正在进行时为 true。
func (s *Synchronizer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Document 返回当前 Document 的副本。
func (s *Synchronizer) Document() resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// SetDocument 整体替换当前 Document（编辑或恢复版本之后调用）。
func (s *Synchronizer) SetDocument(doc resume.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
}

// Close 结束会话，之后到达的响应都被丢弃。
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Load 拉取远端简历。找到则进入 Editing；失败时回到调用前的状态，
// 已进入 Editing 的会话保持 Editing 与当前 Document。
func (s *Synchronizer) Load(ctx context.Context) Result {
	prev, res, ok := s.begin(StateLoading)
	if !ok {
		return res
	}
	start := time.Now()

	creds, ok := s.creds.Credentials()
	if !ok {
		res := s.finishLoad(prev, nil, ErrAuthExpired)
		s.recorder.ObserveSync("load", string(res.Status), time.Since(start))
		return res
	}

	var fetched FetchResult
	backoff := retry.WithMaxRetries(s.loadRetries, retry.NewExponential(s.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.store.Fetch(ctx, creds)
		if err != nil {
			if retryable(err) {
				s.logger.Warn("fetch resume failed, retrying", slog.Any("error", err))
				return retry.RetryableError(err)
			}
			return err
		}
		fetched = res
		return nil
	})

	res = s.finishLoad(prev, &fetched, err)
	s.recorder.ObserveSync("load", string(res.Status), time.Since(start))
	return res
}

func (s *Synchronizer) finishLoad(prev State, fetched *FetchResult, err error) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if s.closed {
		s.logger.Info("discarding load response for closed session")
		return Result{Status: StatusClosed, Message: MessageClosed}
	}

	editing := prev == StateEditing
	if editing {
		s.state = StateEditing
	} else {
		s.state = StateCreating
	}
	switch {
	case errors.Is(err, ErrAuthExpired):
		s.clearCredentials()
		return Result{Status: StatusAuthExpired, Message: MessageAuthExpired}
	case err != nil:
		if editing {
			s.logger.Warn("reload resume failed, keeping current document", slog.Any("error", err))
			return Result{Status: StatusUnavailable, Message: MessageReloadFailed}
		}
		s.logger.Warn("load resume failed, starting fresh", slog.Any("error", err))
		return Result{Status: StatusUnavailable, Message: MessageUnavailable}
	}

	s.refreshCredentials(fetched.AccessToken)
	if fetched.Document == nil {
		s.logger.Info("no saved resume found", slog.Bool("editing", editing))
		if editing {
			return Result{Status: StatusNotFound, Message: MessageReloadMissing}
		}
		return Result{Status: StatusNotFound, Message: MessageNotFound}
	}

	s.doc = fetched.Document.Normalize()
	s.state = StateEditing
	s.logger.Info("resume loaded")
	return Result{Status: StatusOK, Message: MessageLoaded}
}

// Save 提交 doc：Creating 状态调用 create，Editing 状态调用 update。
// 已有请求在途时直接返回 StatusBusy，不发起网络请求。Save 从不自动重试。
func (s *Synchronizer) Save(ctx context.Context, doc resume.Document) Result {
	_, res, ok := s.begin(-1)
	if !ok {
		return res
	}
	start := time.Now()

	s.mu.Lock()
	intent := s.state
	s.mu.Unlock()

	creds, ok := s.creds.Credentials()
	if !ok {
		res := s.finishSave(doc, SaveResult{}, ErrAuthExpired)
		s.recorder.ObserveSync("save", string(res.Status), time.Since(start))
		return res
	}

	payload := doc.WithoutVersions()
	var (
		saved SaveResult
		err   error
	)
	if intent == StateEditing {
		saved, err = s.store.Update(ctx, creds, payload)
	} else {
		saved, err = s.store.Create(ctx, creds, payload)
	}

	res = s.finishSave(doc, saved, err)
	s.recorder.ObserveSync("save", string(res.Status), time.Since(start))
	return res
}

func (s *Synchronizer) finishSave(doc resume.Document, saved SaveResult, err error) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if s.closed {
		s.logger.Info("discarding save response for closed session")
		return Result{Status: StatusClosed, Message: MessageClosed}
	}

	if err != nil {
		if errors.Is(err, ErrAuthExpired) {
			s.clearCredentials()
			return Result{Status: StatusAuthExpired, Message: MessageAuthExpired}
		}
		s.logger.Warn("save resume failed", slog.Any("error", err))
		return Result{Status: StatusFailed, Message: messageFrom(err, MessageSaveFailed)}
	}

	s.refreshCredentials(saved.AccessToken)
	s.doc = doc.Clone()
	s.state = StateEditing
	msg := saved.Message
	if msg == "" {
		msg = MessageSaved
	}
	s.logger.Info("resume saved")
	return Result{Status: StatusOK, Message: msg}
}

// begin 占用在途标记。next 为 StateLoading 时同时切换状态，负数表示不改。
// begin 占用会话并返回切换前的状态；next < 0 时不切换。
func (s *Synchronizer) begin(next State) (State, Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	if s.closed {
		return prev, Result{Status: StatusClosed, Message: MessageClosed}, false
	}
	if s.busy {
		return prev, Result{Status: StatusBusy, Message: MessageBusy}, false
	}
	s.busy = true
	if next >= 0 {
		s.state = next
	}
	return prev, Result{}, true
}

// 调用方需持有 s.mu。
func (s *Synchronizer) refreshCredentials(token string) {
	if token == "" {
		return
	}
	if err := s.creds.Refresh(token); err != nil {
		s.logger.Error("store refreshed credential failed", slog.Any("error", err))
	}
}

// 调用方需持有 s.mu。
func (s *Synchronizer) clearCredentials() {
	if err := s.creds.Clear(); err != nil {
		s.logger.Error("clear credentials failed", slog.Any("error", err))
	}
}

type serverMessage interface {
	ServerMessage() string
}

type statusCoder interface {
	StatusCode() int
}

func messageFrom(err error, fallback string) string {
	var sm serverMessage
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return fallback
}

// retryable 只重试网络错误和 5xx。
func retryable(err error) bool {
	if !errors.Is(err, ErrRemoteUnavailable) {
		return false
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode() >= 500
	}
	return true
}
