package woo

import (
	"context"
	"time"
)

// RateLimiter 外部限流器：返回 true 表示放行并消耗一个名额
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// ActivityLogger 活动日志，调用方不关心结果，实现方不得 panic 或阻塞过久
type ActivityLogger interface {
	Record(ctx context.Context, action, description, category string, metadata map[string]any)
}

// ConnectionError 连通性检测失败时持久化的结构化错误
type ConnectionError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// ConnectionRecorder 连通状态持久化
type ConnectionRecorder interface {
	MarkConnected(ctx context.Context, storeID int64, at time.Time) error
	MarkDisconnected(ctx context.Context, storeID int64, cerr ConnectionError) error
}

// 活动日志 action / category
const (
	ActivityAPISuccess = "api_request_success"
	ActivityAPIError   = "api_error"
	ActivityCategory   = "api"
)
