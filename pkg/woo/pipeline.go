package woo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorExcerptLength 非 JSON 错误响应体摘录长度
const ErrorExcerptLength = 250

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ==================== Client ====================

// Client 绑定一个 (user, store)，构造后凭证与权限不可变
// 每次调用的结果只通过返回的 Envelope 暴露，客户端上不保留 last error 之类的状态
type Client struct {
	cred   Credential
	access AccessContext

	http      *resty.Client
	transport http.RoundTripper

	limiter  RateLimiter
	activity ActivityLogger
	recorder ConnectionRecorder
	metrics  *Metrics
	log      *zap.Logger

	sleep Sleeper
	now   func() time.Time
}

// Option 客户端选项
type Option func(*Client)

// WithRateLimiter 注入限流器，未注入时不限流
func WithRateLimiter(l RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithActivityLogger 注入活动日志
func WithActivityLogger(a ActivityLogger) Option {
	return func(c *Client) { c.activity = a }
}

// WithConnectionRecorder 注入连通状态持久化
func WithConnectionRecorder(r ConnectionRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithMetrics 注入指标
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger 注入日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTransport 替换底层 RoundTripper (测试或自定义 TLS 根证书)
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithSleeper 替换退避等待实现
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient 创建客户端
func NewClient(cred Credential, access AccessContext, opts ...Option) *Client {
	c := &Client{
		cred:   cred,
		access: access,
		log:    zap.NewNop(),
		sleep:  contextSleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("woo").With(zap.Int64("store_id", cred.StoreID))
	c.http = newRestyClient(cred, c.transport, c.log)
	return c
}

// IsConfigured 地址与密钥是否齐全
func (c *Client) IsConfigured() bool {
	return c.cred.IsConfigured()
}

// StoreID 绑定的店铺
func (c *Client) StoreID() int64 {
	return c.cred.StoreID
}

// Access 当前用户在店铺上的权限
func (c *Client) Access() AccessContext {
	return c.access
}

// ==================== 请求管道 ====================

// Invoke 所有资源方法的唯一入口；普通失败全部体现在 Envelope 里
func (c *Client) Invoke(ctx context.Context, d Descriptor) *Envelope {
	if ctx == nil {
		ctx = context.Background()
	}
	started := c.now()

	diag := Diagnostics{
		RequestID: uuid.NewString(),
		StoreID:   c.cred.StoreID,
		Endpoint:  d.normalizedEndpoint(),
		Method:    d.normalizedMethod(),
		Group:     d.ResourceGroup(),
	}

	env := c.execute(ctx, d, &diag)
	diag.Duration = c.now().Sub(started)
	env.Diagnostics = diag

	c.report(ctx, d, env)
	return env
}

// reject 调用前即被拦截的失败 (参数校验等)，同样走统一上报
func (c *Client) reject(ctx context.Context, d Descriptor, code, message string) *Envelope {
	env := failure(code, message)
	env.Diagnostics = Diagnostics{
		RequestID: uuid.NewString(),
		StoreID:   c.cred.StoreID,
		Endpoint:  d.normalizedEndpoint(),
		Method:    d.normalizedMethod(),
		Group:     d.ResourceGroup(),
	}
	c.report(ctx, d, env)
	return env
}

func (c *Client) execute(ctx context.Context, d Descriptor, diag *Diagnostics) *Envelope {
	// 1. 配置检查
	if !c.IsConfigured() {
		return failure(CodeNotConfigured, "API client is not configured: store URL, consumer key and consumer secret are required")
	}

	// 2. 权限检查 (只针对写/删)
	if !d.SkipPermissionCheck {
		if action, needs := ActionForMethod(diag.Method); needs && !c.access.Can(action) {
			return failure(CodePermissionDenied,
				fmt.Sprintf("Permission denied: role %q is not allowed to %s on this store", c.access.Role, action))
		}
	}

	// 3. 限流检查，每次 Invoke 只调用一次
	if c.limiter != nil {
		key := fmt.Sprintf("%d:%s", c.cred.StoreID, diag.Group)
		if !c.limiter.Allow(key, c.cred.RateLimitRequests, c.cred.RateLimitWindow) {
			return failure(CodeRateLimitExceeded,
				fmt.Sprintf("Rate limit exceeded: at most %d requests per %s for %q", c.cred.RateLimitRequests, c.cred.RateLimitWindow, diag.Group))
		}
	}

	// 4. 组装请求
	endpointURL := c.cred.BaseURL + diag.Endpoint
	var body []byte
	if !usesQuery(diag.Method) {
		b, err := encodeBody(d.Params)
		if err != nil {
			return failure(CodeInvalidArgument, "Cannot encode request body: "+err.Error())
		}
		body = b
	}
	query := EncodeQuery(d.Params)

	// 5. 尝试循环
	policy := c.cred.RetryPolicy()
	var (
		result  *rawAttempt
		lastErr error
	)
	for attempt := 0; attempt < policy.MaxAttempts(); attempt++ {
		diag.Attempts = attempt + 1
		c.log.Debug("sending request",
			zap.String("request_id", diag.RequestID),
			zap.String("method", diag.Method),
			zap.String("endpoint", diag.Endpoint),
			zap.Int("attempt", attempt+1))

		result, lastErr = doAttempt(ctx, c.http, diag.Method, endpointURL, query, body)

		var class FailureClass
		if lastErr != nil {
			class = ClassifyTransportError(lastErr)
			diag.LastError = lastErr.Error()
		} else {
			class = ClassifyStatus(result.status)
		}

		retry, wait := policy.Decide(attempt, class)
		if !retry {
			break
		}

		c.log.Warn("retrying request",
			zap.String("request_id", diag.RequestID),
			zap.String("endpoint", diag.Endpoint),
			zap.Stringer("failure", class),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait))

		if err := c.sleep(ctx, wait); err != nil {
			lastErr = err
			result = nil
			diag.LastError = err.Error()
			break
		}
		diag.Waited += wait
	}

	if lastErr != nil {
		return failure(CodeTransportError, "Transport error: "+lastErr.Error())
	}

	// 6. 响应分类
	return classify(result)
}

// classify 把最后一次尝试的原始响应转换为 Envelope
func classify(r *rawAttempt) *Envelope {
	env := &Envelope{
		StatusCode: intPtr(r.status),
		Headers:    ParseHeaderBlock(r.header),
	}

	trimmed := bytes.TrimSpace(r.body)
	isJSON := len(trimmed) == 0 || json.Valid(trimmed)

	if !isJSON && r.status < 400 && r.status != http.StatusNoContent {
		env.ErrorCode = CodeJSONError
		env.Error = "Invalid JSON response from API"
		env.RawBody = string(r.body)
		return env
	}

	if r.status >= 400 {
		env.ErrorCode = HTTPErrorCode(r.status)
		env.Error = fmt.Sprintf("API Error (HTTP %d)", r.status)
		if isJSON && len(trimmed) > 0 {
			applyPlatformError(env, trimmed)
		} else if len(trimmed) > 0 {
			env.Error += ": " + excerpt(r.body, ErrorExcerptLength)
			env.RawBody = string(r.body)
		}
		return env
	}

	env.Success = true
	if len(trimmed) > 0 && r.status != http.StatusNoContent {
		env.Data = json.RawMessage(trimmed)
	}
	return env
}

// applyPlatformError 读取平台错误体中的 code / message / data
func applyPlatformError(env *Envelope, body []byte) {
	var platform struct {
		Code    any             `json:"code"`
		Message any             `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &platform); err != nil {
		return
	}
	if s, ok := platform.Message.(string); ok && strings.TrimSpace(s) != "" {
		env.Error = s
	}
	if s, ok := platform.Code.(string); ok && s != "" {
		env.ErrorCode = s
	}
	if len(platform.Data) > 0 && string(platform.Data) != "null" {
		env.ErrorData = platform.Data
	}
}

// excerpt 去标签、压缩空白后截取前 n 个字符
func excerpt(body []byte, n int) string {
	s := tagRe.ReplaceAllString(string(body), " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ==================== 统一上报 ====================

// report 所有结果 (成功/失败，无论哪个阶段) 都经过这里
func (c *Client) report(ctx context.Context, d Descriptor, env *Envelope) {
	diag := env.Diagnostics
	meta := map[string]any{
		"request_id":     diag.RequestID,
		"store_id":       diag.StoreID,
		"endpoint":       diag.Endpoint,
		"method":         diag.Method,
		"resource_group": diag.Group,
		"attempts":       diag.Attempts,
		"duration_ms":    diag.Duration.Milliseconds(),
	}
	if env.StatusCode != nil {
		meta["status_code"] = *env.StatusCode
	}

	fields := []zap.Field{
		zap.String("request_id", diag.RequestID),
		zap.String("method", diag.Method),
		zap.String("endpoint", diag.Endpoint),
		zap.Int("status", env.Status()),
		zap.Int("attempts", diag.Attempts),
		zap.Duration("duration", diag.Duration),
	}

	if env.Success {
		meta["response_size"] = len(env.Data)
		c.log.Debug("request succeeded", fields...)
		c.record(ctx, ActivityAPISuccess, fmt.Sprintf("%s %s", diag.Method, diag.Endpoint), meta)
	} else {
		meta["error_code"] = env.ErrorCode
		meta["error"] = env.Error
		meta["param_keys"] = paramKeys(d.Params)
		meta["permission_checked"] = !d.SkipPermissionCheck
		c.log.Warn("request failed", append(fields,
			zap.String("error_code", env.ErrorCode),
			zap.String("error", env.Error))...)
		c.record(ctx, ActivityAPIError, env.Error, meta)
	}

	c.metrics.observe(env)
}

// record 活动日志失败或 panic 都不能影响调用方
func (c *Client) record(ctx context.Context, action, description string, meta map[string]any) {
	if c.activity == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("activity logger panicked", zap.Any("panic", r))
		}
	}()
	c.activity.Record(ctx, action, description, ActivityCategory, meta)
}

func paramKeys(p Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
