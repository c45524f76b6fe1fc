package woo

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	wnet "woo_console_v1_202610/pkg/net"
)

// MaxRedirects 最多跟随的重定向次数
const MaxRedirects = 3

// ==================== 重定向头块收集 ====================

type trailKey struct{}

// headerTrail 收集一次尝试中经过的中间响应，用于拼出完整的原始头块
type headerTrail struct {
	mu        sync.Mutex
	responses []*http.Response
}

func (t *headerTrail) add(resp *http.Response) {
	if resp == nil {
		return
	}
	t.mu.Lock()
	t.responses = append(t.responses, resp)
	t.mu.Unlock()
}

func (t *headerTrail) block(final *http.Response) []byte {
	var buf bytes.Buffer
	t.mu.Lock()
	for _, r := range t.responses {
		writeHeaderBlock(&buf, r)
	}
	t.mu.Unlock()
	writeHeaderBlock(&buf, final)
	return buf.Bytes()
}

// redirectPolicy 限制跳数，同时记录每一跳的响应头
func redirectPolicy(max int) resty.RedirectPolicyFunc {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		if trail, ok := req.Context().Value(trailKey{}).(*headerTrail); ok {
			trail.add(req.Response)
		}
		return nil
	}
}

// ==================== Resty 客户端 ====================

// newRestyClient 每个 (user, store) 客户端一个 resty 实例，底层 Transport 共享
func newRestyClient(cred Credential, rt http.RoundTripper, log *zap.Logger) *resty.Client {
	if rt == nil {
		rt = wnet.SharedTransport(cred.ConnectTimeout)
	}

	return resty.New().
		SetTransport(rt).
		SetTimeout(cred.Timeout).
		SetRetryCount(0).
		SetRedirectPolicy(redirectPolicy(MaxRedirects)).
		SetBasicAuth(cred.ConsumerKey, cred.ConsumerSecret).
		SetHeaders(map[string]string{
			"Content-Type":  "application/json",
			"Accept":        "application/json",
			"Cache-Control": "no-cache",
			"User-Agent":    cred.UserAgent,
		}).
		SetLogger(log.Named("resty").Sugar())
}

// rawAttempt 单次 HTTP 尝试的结果
type rawAttempt struct {
	status int
	body   []byte
	header []byte
}

// doAttempt 执行一次 HTTP 请求，err 非空表示传输层失败
func doAttempt(ctx context.Context, hc *resty.Client, method, endpointURL string, query url.Values, body []byte) (*rawAttempt, error) {
	trail := &headerTrail{}
	req := hc.R().SetContext(context.WithValue(ctx, trailKey{}, trail))
	if usesQuery(method) {
		if len(query) > 0 {
			req.SetQueryParamsFromValues(query)
		}
	} else {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, endpointURL)
	if err != nil {
		return nil, err
	}

	return &rawAttempt{
		status: resp.StatusCode(),
		body:   resp.Body(),
		header: trail.block(resp.RawResponse),
	}, nil
}
