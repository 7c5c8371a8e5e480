package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/export"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/tasks"
)

// ObjectStore 由 *storage.Client 实现。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, objectKey string) error
}

// ExportTaskHandler 消费 PDF 导出任务：渲染、上传、落库、通知。
type ExportTaskHandler struct {
	resumes   *database.Resumes
	renderer  pdf.Renderer
	store     ObjectStore
	publisher Publisher
	logger    *slog.Logger

	isFinalAttempt func(ctx context.Context) bool
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(db *gorm.DB, renderer pdf.Renderer, store ObjectStore, publisher Publisher, logger *slog.Logger) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{
		resumes:        database.NewResumes(db),
		renderer:       renderer,
		store:          store,
		publisher:      publisher,
		logger:         logger,
		isFinalAttempt: isFinalAsynqAttempt,
	}
}

// taskError 带错误码的失败，用于最终通知。
type taskError struct {
	code int
	err  error
}

func (e *taskError) Error() string { return e.err.Error() }
func (e *taskError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &taskError{code: code, err: err}
}

func codeOf(err error) int {
	var te *taskError
	if errors.As(err, &te) {
		return te.code
	}
	return errcode.SystemError
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ExportPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("export task started")

	record, err := h.resumes.FindByID(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !h.isFinalAttempt(ctx) {
			return
		}
		if err := h.resumes.SetExport(ctx, record.ID, database.ExportStatusFailed, ""); err != nil {
			log.Error("mark export failed", slog.Any("error", err))
		}
		notify := ExportNotifyMessage{
			Status:        NotifyError,
			ResumeID:      record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     codeOf(retErr),
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.publisher, record.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	doc, err := resume.Decode(record.Content)
	if err != nil {
		log.Error("decode stored resume failed", slog.Any("error", err))
		return withCode(errcode.InvalidDocument, fmt.Errorf("%w: %v", asynq.SkipRetry, err))
	}

	page, err := export.HTMLDocument(doc)
	if err != nil {
		log.Error("build export page failed", slog.Any("error", err))
		return withCode(errcode.RenderFailed, fmt.Errorf("%w: %v", asynq.SkipRetry, err))
	}

	pdfBytes, err := h.renderer.Render(ctx, page)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return withCode(errcode.RenderFailed, err)
	}

	objectName := fmt.Sprintf("exports/%d/%s.pdf", record.UserID, uuid.NewString())
	if err := h.store.UploadFile(ctx, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return withCode(errcode.StorageFailed, err)
	}

	previous := record.PdfObjectKey
	if err := h.resumes.SetExport(ctx, record.ID, database.ExportStatusCompleted, objectName); err != nil {
		log.Error("update resume export failed", slog.Any("error", err))
		return err
	}
	if previous != "" && previous != objectName {
		if err := h.store.DeleteObject(ctx, previous); err != nil {
			log.Warn("delete previous export failed", slog.String("object_key", previous), slog.Any("error", err))
		}
	}

	notify := ExportNotifyMessage{
		Status:        NotifyCompleted,
		ResumeID:      record.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := publishNotify(ctx, h.publisher, record.UserID, notify); err != nil {
		// PDF 已落库，通知失败不重试。
		log.Error("publish export notification failed", slog.Any("error", err))
	}

	log.Info("export task completed", slog.String("object_key", objectName), slog.Int("bytes", len(pdfBytes)))
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
