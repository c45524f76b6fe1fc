package woo

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

const (
	// ProbeEndpoint 连通性检测使用的轻量只读接口
	ProbeEndpoint = "system_status"
	// ProbeGroup 独立的限流分组，探测与业务流量互不挤占
	ProbeGroup = "test"
)

// TestConnection 连通性检测
// 跳过写权限校验，但仍然限流；结果交给 ConnectionRecorder 持久化
func (c *Client) TestConnection(ctx context.Context) *Envelope {
	env := c.Invoke(ctx, Descriptor{
		Endpoint:            ProbeEndpoint,
		Method:              http.MethodGet,
		SkipPermissionCheck: true,
		Group:               ProbeGroup,
	})

	if c.recorder == nil {
		return env
	}

	// 调用方取消或超时也要落库
	ctx = context.WithoutCancel(ctx)

	if env.Success {
		if err := c.recorder.MarkConnected(ctx, c.cred.StoreID, c.now()); err != nil {
			c.log.Error("persist connected state failed", zap.Error(err))
		}
		return env
	}

	cerr := ConnectionError{
		Code:       env.ErrorCode,
		Message:    env.Error,
		StatusCode: env.Status(),
		CheckedAt:  c.now(),
	}
	if err := c.recorder.MarkDisconnected(ctx, c.cred.StoreID, cerr); err != nil {
		c.log.Error("persist disconnected state failed", zap.Error(err))
	}
	return env
}
