package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// SyncRecorder 记录编辑会话的加载/保存结果，实现 session.Recorder。
// 使用独立 Registry，命令行进程退出前可推送到 Pushgateway。
type SyncRecorder struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewSyncRecorder 构造记录器。
func NewSyncRecorder() *SyncRecorder {
	r := &SyncRecorder{
		registry: prometheus.NewRegistry(),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "operations_total",
				Help:      "加载/保存次数，按结果分类。",
			},
			[]string{"op", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "operation_duration_seconds",
				Help:      "加载/保存耗时分布（秒）。",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	r.registry.MustRegister(r.total, r.duration)
	return r
}

// ObserveSync 记录一次操作。
func (r *SyncRecorder) ObserveSync(op, status string, elapsed time.Duration) {
	r.total.WithLabelValues(op, status).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Gatherer 返回内部 Registry。
func (r *SyncRecorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push 将当前指标推送到 Pushgateway。
func (r *SyncRecorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push sync metrics: %w", err)
	}
	return nil
}
