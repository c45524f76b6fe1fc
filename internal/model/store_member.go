package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// 邀请状态
const (
	MemberStatusPending  = "pending"
	MemberStatusAccepted = "accepted"
	MemberStatusRevoked  = "revoked"
)

// StoreMember 店铺协作者 (店主本人不在此表)
type StoreMember struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 联合唯一索引：一个用户在一个店铺里只能有一种角色
	StoreID   int64 `gorm:"index;uniqueIndex:idx_store_user;not null" json:"store_id"`
	SysUserID int64 `gorm:"index;uniqueIndex:idx_store_user;not null" json:"user_id"`

	// 角色: admin / editor / viewer
	Role   string `gorm:"size:20;default:'viewer'" json:"role"`
	Status string `gorm:"size:20;index;default:'pending'" json:"status"`

	// 在角色默认权限之外追加的动作，JSON 字符串数组
	Permissions datatypes.JSON `json:"permissions"`

	InvitedBy  int64      `json:"invited_by"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

func (StoreMember) TableName() string {
	return "store_members"
}

// PermissionList 解析自定义权限，格式错误时按空处理
func (m *StoreMember) PermissionList() []string {
	if len(m.Permissions) == 0 {
		return nil
	}
	var perms []string
	if err := json.Unmarshal(m.Permissions, &perms); err != nil {
		return nil
	}
	return perms
}

// SetPermissions 写入自定义权限
func (m *StoreMember) SetPermissions(perms []string) {
	if len(perms) == 0 {
		m.Permissions = nil
		return
	}
	raw, _ := json.Marshal(perms)
	m.Permissions = datatypes.JSON(raw)
}
