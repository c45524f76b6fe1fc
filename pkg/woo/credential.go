package woo

import (
	"fmt"
	"strings"
	"time"
)

// ==================== 默认值 ====================

const (
	DefaultAPIVersion         = "v3"
	DefaultTimeoutSeconds     = 30
	ConnectTimeoutSeconds     = 10 // 固定值，不允许覆盖
	DefaultRateLimitRequests  = 60
	DefaultRateLimitWindowSec = 60
	DefaultMaxRetries         = 3
	DefaultRetryDelaySeconds  = 1
	DefaultAppName            = "WooConsole"
	DefaultAppVersion         = "1.0.0"

	apiPathPrefix = "wp-json/wc/"
)

// Defaults 系统级默认配置 (config -> sys_settings 两层合并后的结果)
type Defaults struct {
	AppName                string
	AppVersion             string
	APIVersion             string
	TimeoutSeconds         int
	RateLimitRequests      int
	RateLimitWindowSeconds int
	MaxRetries             int
	RetryDelaySeconds      int
}

// DefaultDefaults 内置兜底值
func DefaultDefaults() Defaults {
	return Defaults{
		AppName:                DefaultAppName,
		AppVersion:             DefaultAppVersion,
		APIVersion:             DefaultAPIVersion,
		TimeoutSeconds:         DefaultTimeoutSeconds,
		RateLimitRequests:      DefaultRateLimitRequests,
		RateLimitWindowSeconds: DefaultRateLimitWindowSec,
		MaxRetries:             DefaultMaxRetries,
		RetryDelaySeconds:      DefaultRetryDelaySeconds,
	}
}

// withFallback 零值字段回落到内置默认值
func (d Defaults) withFallback() Defaults {
	fb := DefaultDefaults()
	if d.AppName == "" {
		d.AppName = fb.AppName
	}
	if d.AppVersion == "" {
		d.AppVersion = fb.AppVersion
	}
	if d.APIVersion == "" {
		d.APIVersion = fb.APIVersion
	}
	if d.TimeoutSeconds <= 0 {
		d.TimeoutSeconds = fb.TimeoutSeconds
	}
	if d.RateLimitRequests <= 0 {
		d.RateLimitRequests = fb.RateLimitRequests
	}
	if d.RateLimitWindowSeconds <= 0 {
		d.RateLimitWindowSeconds = fb.RateLimitWindowSeconds
	}
	if d.MaxRetries < 0 {
		d.MaxRetries = 0
	}
	if d.RetryDelaySeconds < 0 {
		d.RetryDelaySeconds = 0
	}
	return d
}

// StoreRecord 构造客户端所需的店铺记录 (由仓储层从 stores 表映射而来)
type StoreRecord struct {
	ID                     int64
	OwnerUserID            int64
	URL                    string
	ConsumerKey            string
	ConsumerSecret         string
	APIVersion             string
	TimeoutSeconds         int // 0 表示使用系统默认
	RateLimitRequests      int // 0 表示使用系统默认
	RateLimitWindowSeconds int // 0 表示使用系统默认
}

// ==================== Credential ====================

// Credential 单个店铺解析后的连接参数，客户端构造后不再变化
type Credential struct {
	StoreID        int64
	BaseURL        string // 始终以 "/" 结尾
	ConsumerKey    string
	ConsumerSecret string
	APIVersion     string
	UserAgent      string

	Timeout        time.Duration
	ConnectTimeout time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	MaxRetries int
	RetryDelay time.Duration
}

// NewCredential 合并店铺记录与系统默认值
// 优先级: 店铺覆盖 > 系统默认
func NewCredential(store StoreRecord, defaults Defaults) Credential {
	d := defaults.withFallback()

	version := strings.Trim(strings.TrimSpace(store.APIVersion), "/")
	if version == "" {
		version = d.APIVersion
	}

	timeout := d.TimeoutSeconds
	if store.TimeoutSeconds > 0 {
		timeout = store.TimeoutSeconds
	}
	limit := d.RateLimitRequests
	if store.RateLimitRequests > 0 {
		limit = store.RateLimitRequests
	}
	window := d.RateLimitWindowSeconds
	if store.RateLimitWindowSeconds > 0 {
		window = store.RateLimitWindowSeconds
	}

	return Credential{
		StoreID:           store.ID,
		BaseURL:           buildBaseURL(store.URL, version),
		ConsumerKey:       strings.TrimSpace(store.ConsumerKey),
		ConsumerSecret:    strings.TrimSpace(store.ConsumerSecret),
		APIVersion:        version,
		UserAgent:         fmt.Sprintf("%s/%s", d.AppName, d.AppVersion),
		Timeout:           time.Duration(timeout) * time.Second,
		ConnectTimeout:    ConnectTimeoutSeconds * time.Second,
		RateLimitRequests: limit,
		RateLimitWindow:   time.Duration(window) * time.Second,
		MaxRetries:        d.MaxRetries,
		RetryDelay:        time.Duration(d.RetryDelaySeconds) * time.Second,
	}
}

// buildBaseURL 店铺地址 + 固定 API 段，店铺地址为空时返回空串
func buildBaseURL(storeURL, version string) string {
	u := strings.TrimRight(strings.TrimSpace(storeURL), "/")
	if u == "" {
		return ""
	}
	return u + "/" + apiPathPrefix + version + "/"
}

// IsConfigured 地址与密钥齐全才可用
func (c Credential) IsConfigured() bool {
	return c.BaseURL != "" && c.ConsumerKey != "" && c.ConsumerSecret != ""
}

// RetryPolicy 由凭证派生的重试策略
func (c Credential) RetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: c.MaxRetries, Delay: c.RetryDelay}
}

// String 打印时隐藏密钥
func (c Credential) String() string {
	return fmt.Sprintf("Credential{store=%d base=%q version=%s key=%s secret=%s}",
		c.StoreID, c.BaseURL, c.APIVersion, redact(c.ConsumerKey), redact(c.ConsumerSecret))
}

// GoString 防止 %#v 泄露密钥
func (c Credential) GoString() string {
	return c.String()
}

func redact(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "<redacted>"
}
