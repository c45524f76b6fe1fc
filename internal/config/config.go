package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"woo_console_v1_202610/pkg/woo"
)

// EnvPrefix 环境变量前缀，例如 WOOC_SERVER_PORT
const EnvPrefix = "WOOC"

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Activity ActivityConfig `mapstructure:"activity"`
	Woo      WooConfig      `mapstructure:"woo"`
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin 模式: debug / release / test
}

// DatabaseConfig 数据库
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"` // gorm: silent / error / warn / info
}

// JWTConfig 鉴权
type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	Issuer    string        `mapstructure:"issuer"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

// LogConfig 日志
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ProbeConfig 定时连通性检测
type ProbeConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Cron        string        `mapstructure:"cron"` // 带秒的 cron 表达式
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ActivityConfig 活动日志保留策略
type ActivityConfig struct {
	Retention time.Duration `mapstructure:"retention"` // 0 表示不清理
	PruneCron string        `mapstructure:"prune_cron"`
}

// WooConfig 店铺 API 客户端系统默认值，可被 sys_settings 覆盖
type WooConfig struct {
	AppName                string `mapstructure:"app_name"`
	AppVersion             string `mapstructure:"app_version"`
	APIVersion             string `mapstructure:"api_version"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	RateLimitRequests      int    `mapstructure:"rate_limit_requests"`
	RateLimitWindowSeconds int    `mapstructure:"rate_limit_window_seconds"`
	MaxRetries             int    `mapstructure:"max_retries"`
	RetryDelaySeconds      int    `mapstructure:"retry_delay_seconds"`
}

// Defaults 转为客户端默认值
func (w WooConfig) Defaults() woo.Defaults {
	return woo.Defaults{
		AppName:                w.AppName,
		AppVersion:             w.AppVersion,
		APIVersion:             w.APIVersion,
		TimeoutSeconds:         w.TimeoutSeconds,
		RateLimitRequests:      w.RateLimitRequests,
		RateLimitWindowSeconds: w.RateLimitWindowSeconds,
		MaxRetries:             w.MaxRetries,
		RetryDelaySeconds:      w.RetryDelaySeconds,
	}
}

// ==================== 加载 ====================

// Load 读取配置文件 (可选) 并用环境变量覆盖
// path 为空时依次查找 ./configs/config.yaml、./config.yaml
func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	setDefaults(vip)

	if err := vip.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", 8080)
	vip.SetDefault("server.mode", "release")

	vip.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=woo_console port=5432 sslmode=disable TimeZone=UTC")
	vip.SetDefault("database.log_level", "warn")

	vip.SetDefault("jwt.secret", "")
	vip.SetDefault("jwt.issuer", "woo-console")
	vip.SetDefault("jwt.access_ttl", 2*time.Hour)

	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.development", false)

	vip.SetDefault("probe.enabled", true)
	vip.SetDefault("probe.cron", "0 */15 * * * *")
	vip.SetDefault("probe.concurrency", 5)
	vip.SetDefault("probe.timeout", 2*time.Minute)

	vip.SetDefault("activity.retention", 30*24*time.Hour)
	vip.SetDefault("activity.prune_cron", "0 30 3 * * *")

	d := woo.DefaultDefaults()
	vip.SetDefault("woo.app_name", d.AppName)
	vip.SetDefault("woo.app_version", d.AppVersion)
	vip.SetDefault("woo.api_version", d.APIVersion)
	vip.SetDefault("woo.timeout_seconds", d.TimeoutSeconds)
	vip.SetDefault("woo.rate_limit_requests", d.RateLimitRequests)
	vip.SetDefault("woo.rate_limit_window_seconds", d.RateLimitWindowSeconds)
	vip.SetDefault("woo.max_retries", d.MaxRetries)
	vip.SetDefault("woo.retry_delay_seconds", d.RetryDelaySeconds)
}

// ==================== 校验 ====================

// Validate 启动前校验
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.JWT),
		validation.Field(&c.Log),
		validation.Field(&c.Probe),
		validation.Field(&c.Activity),
		validation.Field(&c.Woo),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.Mode, validation.In("debug", "release", "test")),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.DSN, validation.Required),
		validation.Field(&d.LogLevel, validation.In("silent", "error", "warn", "info")),
	)
}

func (j JWTConfig) Validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.Secret, validation.Required, validation.Length(16, 0)),
		validation.Field(&j.AccessTTL, validation.Required),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

func (p ProbeConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Cron, validation.Required),
		validation.Field(&p.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&p.Timeout, validation.Required),
	)
}

func (a ActivityConfig) Validate() error {
	if a.Retention <= 0 {
		return nil
	}
	return validation.ValidateStruct(&a,
		validation.Field(&a.Retention, validation.Min(time.Hour)),
		validation.Field(&a.PruneCron, validation.Required),
	)
}

func (w WooConfig) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.AppName, validation.Required),
		validation.Field(&w.AppVersion, validation.Required),
		validation.Field(&w.APIVersion, validation.Required),
		validation.Field(&w.TimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&w.RateLimitRequests, validation.Required, validation.Min(1)),
		validation.Field(&w.RateLimitWindowSeconds, validation.Required, validation.Min(1)),
		validation.Field(&w.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&w.RetryDelaySeconds, validation.Min(0)),
	)
}
