package repository

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/pkg/woo"
)

// SettingRepository 系统设置仓储
type SettingRepository interface {
	Set(ctx context.Context, key, value string) error
	GetAll(ctx context.Context) (map[string]string, error)
	LoadDefaults(ctx context.Context, base woo.Defaults) (woo.Defaults, error)
}

type settingRepo struct {
	db *gorm.DB
}

// NewSettingRepository 创建系统设置仓储
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepo{db: db}
}

// Set 按 key upsert
func (r *settingRepo) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model.SysSetting{Key: key, Value: value}).Error
}

func (r *settingRepo) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []model.SysSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// LoadDefaults 用 sys_settings 覆盖配置文件中的默认值
// 空值或无法解析的数字保持 base 不变
func (r *settingRepo) LoadDefaults(ctx context.Context, base woo.Defaults) (woo.Defaults, error) {
	settings, err := r.GetAll(ctx)
	if err != nil {
		return base, err
	}

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(settings[key]); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if n, err := strconv.Atoi(strings.TrimSpace(settings[key])); err == nil && n >= 0 {
			*dst = n
		}
	}

	str(model.SettingAppName, &base.AppName)
	str(model.SettingAppVersion, &base.AppVersion)
	str(model.SettingAPIVersion, &base.APIVersion)
	num(model.SettingTimeoutSeconds, &base.TimeoutSeconds)
	num(model.SettingRateLimitRequests, &base.RateLimitRequests)
	num(model.SettingRateLimitWindowSeconds, &base.RateLimitWindowSeconds)
	num(model.SettingMaxRetries, &base.MaxRetries)
	num(model.SettingRetryDelaySeconds, &base.RetryDelaySeconds)
	return base, nil
}
