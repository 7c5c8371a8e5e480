package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/tasks"
)

// 通知状态，与 WebSocket 客户端约定一致。
const (
	NotifyCompleted = "completed"
	NotifyError     = "error"
)

// ExportNotifyMessage 导出结果，经 Redis Pub/Sub 转发到用户的 WebSocket 连接。
type ExportNotifyMessage struct {
	Status        string `json:"status"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// Publisher 由 redis.UniversalClient 实现。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

func publishNotify(ctx context.Context, pub Publisher, userID uint, msg ExportNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := pub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
