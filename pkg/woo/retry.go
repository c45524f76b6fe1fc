package woo

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// FailureClass 单次尝试的失败分类
type FailureClass int

const (
	FailureNone      FailureClass = iota
	FailureTransient              // 超时 / 连接被拒 / DNS 解析失败
	FailureTransport              // 其他传输层错误，不重试
	FailureServer                 // HTTP 5xx
	FailureClient                 // HTTP 4xx，不重试
)

func (f FailureClass) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureTransient:
		return "transient"
	case FailureTransport:
		return "transport"
	case FailureServer:
		return "server"
	case FailureClient:
		return "client"
	}
	return "unknown"
}

// RetryPolicy 线性退避: 第 k 次重试前等待 Delay*k
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// MaxAttempts 总尝试次数
func (p RetryPolicy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Decide attempt 从 0 开始
func (p RetryPolicy) Decide(attempt int, class FailureClass) (bool, time.Duration) {
	if class != FailureTransient && class != FailureServer {
		return false, 0
	}
	if attempt >= p.MaxAttempts()-1 {
		return false, 0
	}
	return true, p.Backoff(attempt)
}

// Backoff 第 attempt 次失败后的等待时长
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.Delay * time.Duration(attempt+1)
}

// ClassifyStatus 按状态码分类
func ClassifyStatus(status int) FailureClass {
	switch {
	case status >= 500:
		return FailureServer
	case status >= 400:
		return FailureClient
	}
	return FailureNone
}

// ClassifyTransportError 识别可重试的传输层错误
func ClassifyTransportError(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	// 调用方主动取消不重试
	if errors.Is(err, context.Canceled) {
		return FailureTransport
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureTransient
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTransient
	}
	return FailureTransport
}

// Sleeper 可中断的等待，测试中替换
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
