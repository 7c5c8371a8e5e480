package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/export"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/tasks"
)

const maxResumeBody = 1 << 20

// TaskEnqueuer 由 *asynq.Client 实现。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// LinkSigner 由 *storage.Client 实现。
type LinkSigner interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration, filename string) (string, error)
}

// ExportOptions 导出相关参数。
type ExportOptions struct {
	MaxRetry int
	LinkTTL  time.Duration
}

// ResumeHandler 负责处理与简历相关的 API 请求，每个用户一份简历。
type ResumeHandler struct {
	resumes  *database.Resumes
	enqueuer TaskEnqueuer
	signer   LinkSigner
	opts     ExportOptions
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, enqueuer TaskEnqueuer, signer LinkSigner, opts ExportOptions) *ResumeHandler {
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 5 * time.Minute
	}
	return &ResumeHandler{
		resumes:  database.NewResumes(db),
		enqueuer: enqueuer,
		signer:   signer,
		opts:     opts,
	}
}

type getResumeResponse struct {
	Resume *resume.Document `json:"resume"`
}

// GetResume 返回当前用户的简历，还没有时 resume 为 null。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	doc, err := h.loadDocument(c.Request.Context(), userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusOK, getResumeResponse{})
	case err != nil:
		middleware.LoggerFromContext(c).Error("load resume failed", slog.Any("error", err))
		Internal(c, "Failed to load resume")
	default:
		c.JSON(http.StatusOK, getResumeResponse{Resume: &doc})
	}
}

// CreateResume 首次保存简历，已存在时返回 409。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	content, ok := h.readDocument(c)
	if !ok {
		return
	}

	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))
	if _, err := h.resumes.Create(c.Request.Context(), userID, content); err != nil {
		if errors.Is(err, database.ErrResumeExists) {
			Conflict(c, "Resume already exists")
			return
		}
		logger.Error("create resume failed", slog.Any("error", err))
		Internal(c, "Failed to save resume")
		return
	}

	logger.Info("resume created")
	Message(c, http.StatusCreated, "Resume created successfully")
}

// UpdateResume 覆盖已有简历，不存在时返回 404。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	content, ok := h.readDocument(c)
	if !ok {
		return
	}

	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))
	if _, err := h.resumes.UpdateContent(c.Request.Context(), userID, content); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Resume not found")
			return
		}
		logger.Error("update resume failed", slog.Any("error", err))
		Internal(c, "Failed to save resume")
		return
	}

	logger.Info("resume updated")
	Message(c, http.StatusOK, "Resume updated successfully")
}

// PreviewResume 以 plain-text 或 html-fragment 返回渲染结果。
func (h *ResumeHandler) PreviewResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatPlainText)))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, err := h.loadDocument(c.Request.Context(), userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = resume.NewDocument()
	case err != nil:
		middleware.LoggerFromContext(c).Error("load resume failed", slog.Any("error", err))
		Internal(c, "Failed to load resume")
		return
	}

	out, err := export.Serialize(doc, format)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render preview failed", slog.Any("error", err))
		Internal(c, "Failed to render resume")
		return
	}

	contentType := "text/plain; charset=utf-8"
	if format == export.FormatHTMLFragment {
		contentType = "text/html; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, []byte(out))
}

// ExportResume 将 PDF 导出任务入队并立即返回 202。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	record, err := h.resumes.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Resume not found")
			return
		}
		logger.Error("query resume failed", slog.Any("error", err))
		Internal(c, "Failed to load resume")
		return
	}

	task, err := tasks.NewExportPDFTask(userID, record.ID, middleware.GetCorrelationID(c))
	if err != nil {
		logger.Error("create export task failed", slog.Any("error", err))
		Internal(c, "Failed to create task")
		return
	}

	info, err := h.enqueuer.Enqueue(task, asynq.MaxRetry(h.opts.MaxRetry))
	if err != nil {
		logger.Error("enqueue export task failed", slog.Any("error", err))
		Internal(c, "Failed to enqueue PDF export")
		return
	}

	if err := h.resumes.SetExport(ctx, record.ID, database.ExportStatusPending, ""); err != nil {
		logger.Warn("mark export pending failed", slog.Any("error", err))
	}

	logger.Info("export task enqueued", slog.String("task_id", info.ID))
	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF export request accepted",
		"task_id": info.ID,
	})
}

// GetExportLink 生成最近一次导出 PDF 的预签名下载链接。
func (h *ResumeHandler) GetExportLink(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	record, err := h.resumes.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Resume not found")
			return
		}
		Internal(c, "Failed to load resume")
		return
	}

	if record.PdfObjectKey == "" {
		Conflict(c, "PDF not ready")
		return
	}

	signedURL, err := h.signer.GeneratePresignedURL(ctx, record.PdfObjectKey, h.opts.LinkTTL, "resume.pdf")
	if err != nil {
		middleware.LoggerFromContext(c).Error("sign export link failed", slog.Any("error", err))
		Internal(c, "Failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":           signedURL,
		"export_status": record.ExportStatus,
	})
}

func (h *ResumeHandler) loadDocument(ctx context.Context, userID uint) (resume.Document, error) {
	record, err := h.resumes.FindByUser(ctx, userID)
	if err != nil {
		return resume.Document{}, err
	}
	return resume.Decode(record.Content)
}

// readDocument 读取请求体，校验后返回规范化且不含 versions 的 JSON。失败时已写好响应。
func (h *ResumeHandler) readDocument(c *gin.Context) ([]byte, bool) {
	raw, err := readLimited(c, maxResumeBody)
	if err != nil {
		BadRequest(c, "Failed to read request body")
		return nil, false
	}
	if err := resume.Validate(raw); err != nil {
		BadRequest(c, err.Error())
		return nil, false
	}
	doc, err := resume.Decode(raw)
	if err != nil {
		BadRequest(c, "Invalid resume document")
		return nil, false
	}
	content, err := json.Marshal(doc.WithoutVersions())
	if err != nil {
		Internal(c, "Failed to encode resume")
		return nil, false
	}
	return content, true
}

func readLimited(c *gin.Context, limit int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return c.GetRawData()
}
