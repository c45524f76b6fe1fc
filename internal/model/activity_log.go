package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog 店铺 API 调用活动日志
type ActivityLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID  int64 `gorm:"index" json:"user_id"`
	StoreID int64 `gorm:"index" json:"store_id"`

	Action      string         `gorm:"size:50;index" json:"action"`
	Category    string         `gorm:"size:20" json:"category"`
	Description string         `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSON `json:"metadata"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
