package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExportPDF = "resume:export_pdf"
)

// ExportPDFPayload 描述导出 PDF 所需的最小信息。
type ExportPDFPayload struct {
	UserID        uint   `json:"user_id"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportPDFTask 构造一个简历 PDF 导出任务。
func NewExportPDFTask(userID, resumeID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPDFPayload{
		UserID:        userID,
		ResumeID:      resumeID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeExportPDF, payload), nil
}

// NotifyChannel 用户通知的 Redis 频道。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
