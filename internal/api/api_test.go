package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/tasks"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type fakeSigner struct {
	key      string
	filename string
}

func (f *fakeSigner) GeneratePresignedURL(_ context.Context, key string, _ time.Duration, filename string) (string, error) {
	f.key = key
	f.filename = filename
	return "https://files.example.com/" + key, nil
}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	svc      *auth.AuthService
	enqueuer *fakeEnqueuer
	signer   *fakeSigner
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	svc := auth.NewAuthServiceFromKeys(key, &key.PublicKey, 15*time.Minute, 24*time.Hour)

	env := &testEnv{
		db:       db,
		svc:      svc,
		enqueuer: &fakeEnqueuer{},
		signer:   &fakeSigner{},
		redis:    mr,
	}
	env.router = NewRouter(Deps{
		Config: &config.Config{
			API: config.APIConfig{ExportLinkTTL: time.Minute},
			Auth: config.AuthConfig{
				LoginRateLimitPerHour: 5,
				LoginLockThreshold:    3,
				LoginLockTTL:          10 * time.Minute,
			},
			Worker: config.WorkerConfig{MaxRetry: 2},
		},
		DB:          db,
		Redis:       rdb,
		AuthService: svc,
		Enqueuer:    env.enqueuer,
		Signer:      env.signer,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createUser(t *testing.T, email, password string) database.User {
	t.Helper()
	hash, err := e.svc.HashPassword(password)
	require.NoError(t, err)
	user := database.User{Name: "Ada", Email: email, PasswordHash: hash}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) bearer(t *testing.T, userID uint) map[string]string {
	t.Helper()
	pair, err := e.svc.GenerateTokenPair(userID)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + pair.AccessToken}
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSignupAndDuplicate(t *testing.T) {
	env := newTestEnv(t)
	body := gin.H{"name": "Ada", "email": "Ada@Example.com ", "password": "secret1"}

	w := env.do(t, http.MethodPost, "/users/signup", body, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "User registered successfully", messageOf(t, w))

	var user database.User
	require.NoError(t, env.db.Where("email = ?", "ada@example.com").First(&user).Error)
	assert.True(t, env.svc.CheckPasswordHash("secret1", user.PasswordHash))

	w = env.do(t, http.MethodPost, "/users/signup", body, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User already exists", messageOf(t, w))
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/users/signup", gin.H{"name": "Ada", "email": "ada@example.com", "password": "123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/users/signup", gin.H{"email": "not-an-email", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/users/signup", gin.H{"name": "Ada", "email": "  not-an-email ", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/users/signup", gin.H{"name": "Ada", "email": "   ", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")

	w := env.do(t, http.MethodPost, "/users/login", gin.H{"email": "ada@example.com", "password": "secret1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, userResponse{ID: user.ID, Name: "Ada", Email: "ada@example.com"}, resp.User)

	claims, err := env.svc.ValidateTyped(resp.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	_, err = env.svc.ValidateTyped(resp.RefreshToken, auth.TokenTypeRefresh)
	require.NoError(t, err)
}

func TestLoginFailuresLockAccount(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "ada@example.com", "secret1")

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, "/users/login", gin.H{"email": "ada@example.com", "password": "wrong"}, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid email or password", messageOf(t, w))
	}

	w := env.do(t, http.MethodPost, "/users/login", gin.H{"email": "ada@example.com", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	env.redis.FastForward(11 * time.Minute)
	w = env.do(t, http.MethodPost, "/users/login", gin.H{"email": "ada@example.com", "password": "secret1"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")
	pair, err := env.svc.GenerateTokenPair(user.ID)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/users/logout", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/users/logout", nil, map[string]string{
		middleware.HeaderRefreshToken: "Refresh " + pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out", messageOf(t, w))

	// 已吊销的刷新令牌不能再换取访问令牌。
	env.svc.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	expired, err := env.svc.GenerateAccessToken(user.ID)
	require.NoError(t, err)
	env.svc.WithClock(time.Now)

	w = env.do(t, http.MethodGet, "/resume/getresume", nil, map[string]string{
		"Authorization":               "Bearer " + expired,
		middleware.HeaderRefreshToken: "Refresh " + pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResumeRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/resume/getresume", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", messageOf(t, w))
}

func TestResumeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")
	headers := env.bearer(t, user.ID)

	w := env.do(t, http.MethodGet, "/resume/getresume", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"resume":null}`, w.Body.String())

	w = env.do(t, http.MethodPut, "/resume/update", gin.H{"personalInfo": gin.H{"name": "Ada"}}, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Resume not found", messageOf(t, w))

	doc := resume.NewDocument()
	doc.PersonalInfo.Name = "Ada Lovelace"
	doc.Versions = []resume.Version{{ID: "v1", Name: "draft"}}
	w = env.do(t, http.MethodPost, "/resume/create", doc, headers)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Resume created successfully", messageOf(t, w))

	w = env.do(t, http.MethodPost, "/resume/create", doc, headers)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Resume already exists", messageOf(t, w))

	doc.PersonalInfo.Summary = "Analytical engines"
	w = env.do(t, http.MethodPut, "/resume/update", doc, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Resume updated successfully", messageOf(t, w))

	w = env.do(t, http.MethodGet, "/resume/getresume", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Resume *resume.Document `json:"resume"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Resume)
	assert.Equal(t, "Ada Lovelace", got.Resume.PersonalInfo.Name)
	assert.Equal(t, "Analytical engines", got.Resume.PersonalInfo.Summary)
	assert.Empty(t, got.Resume.Versions)
}

func TestCreateRejectsInvalidDocument(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")
	headers := env.bearer(t, user.ID)

	for _, body := range []string{`not json`, `[1,2]`, `{"workExperience":"nope"}`} {
		w := env.do(t, http.MethodPost, "/resume/create", body, headers)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	var count int64
	require.NoError(t, env.db.Model(&database.Resume{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPreviewFormats(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")
	headers := env.bearer(t, user.ID)

	w := env.do(t, http.MethodGet, "/resume/preview", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	doc := resume.NewDocument()
	doc.PersonalInfo.Name = "Ada Lovelace"
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/resume/create", doc, headers).Code)

	w = env.do(t, http.MethodGet, "/resume/preview?format=plain-text", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ada Lovelace")

	w = env.do(t, http.MethodGet, "/resume/preview?format=html-fragment", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "Ada Lovelace")

	w = env.do(t, http.MethodGet, "/resume/preview?format=docx", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")
	headers := env.bearer(t, user.ID)
	headers[middleware.HeaderCorrelationID] = "corr-42"

	w := env.do(t, http.MethodPost, "/resume/export", nil, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/resume/create", resume.NewDocument(), headers).Code)

	w = env.do(t, http.MethodGet, "/resume/export/link", nil, headers)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PDF not ready", messageOf(t, w))

	w = env.do(t, http.MethodPost, "/resume/export", nil, headers)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"message":"PDF export request accepted","task_id":"task-1"}`, w.Body.String())

	require.Len(t, env.enqueuer.tasks, 1)
	task := env.enqueuer.tasks[0]
	assert.Equal(t, tasks.TypeExportPDF, task.Type())
	var payload tasks.ExportPDFPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, user.ID, payload.UserID)
	assert.Equal(t, "corr-42", payload.CorrelationID)

	record, err := database.NewResumes(env.db).FindByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, database.ExportStatusPending, record.ExportStatus)

	require.NoError(t, database.NewResumes(env.db).SetExport(context.Background(), record.ID, database.ExportStatusCompleted, "exports/1/a.pdf"))
	w = env.do(t, http.MethodGet, "/resume/export/link", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://files.example.com/exports/1/a.pdf","export_status":"completed"}`, w.Body.String())
	assert.Equal(t, "resume.pdf", env.signer.filename)
}

func TestExportEnqueueFailure(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")
	headers := env.bearer(t, user.ID)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/resume/create", resume.NewDocument(), headers).Code)

	env.enqueuer.err = errors.New("redis down")
	w := env.do(t, http.MethodPost, "/resume/export", nil, headers)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	record, err := database.NewResumes(env.db).FindByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, record.ExportStatus)
}

func TestCORSExposesRefreshHeader(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/resume/getresume", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, RefreshToken")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebsocketForwardsNotifications(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ada@example.com", "secret1")
	pair, err := env.svc.GenerateTokenPair(user.ID)
	require.NoError(t, err)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(gin.H{"type": "auth", "token": pair.AccessToken}))

	channel := tasks.NotifyChannel(user.ID)
	payload := `{"status":"completed","resume_id":1}`
	require.Eventually(t, func() bool {
		return env.redis.Publish(channel, payload) > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(msg))
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(gin.H{"type": "auth", "token": "nope"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}
