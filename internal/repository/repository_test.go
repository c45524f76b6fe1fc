package repository

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"woo_console_v1_202610/internal/model"
)

// ==================== 测试辅助 ====================

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(&model.SysUser{}, &model.Store{}, &model.StoreMember{}, &model.SysSetting{}, &model.ActivityLog{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}
