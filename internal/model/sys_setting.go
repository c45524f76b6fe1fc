package model

import "time"

// 系统设置键，覆盖配置文件中的 woo.* 默认值
const (
	SettingAppName                = "woo.app_name"
	SettingAppVersion             = "woo.app_version"
	SettingAPIVersion             = "woo.api_version"
	SettingTimeoutSeconds         = "woo.timeout_seconds"
	SettingRateLimitRequests      = "woo.rate_limit_requests"
	SettingRateLimitWindowSeconds = "woo.rate_limit_window_seconds"
	SettingMaxRetries             = "woo.max_retries"
	SettingRetryDelaySeconds      = "woo.retry_delay_seconds"
)

// SysSetting 系统级键值设置
type SysSetting struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"size:100;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SysSetting) TableName() string {
	return "sys_settings"
}
