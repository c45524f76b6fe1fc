package model

// SysUser 系统用户
type SysUser struct {
	BaseModel
	Username     string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Email        string `gorm:"size:100" json:"email"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// 用户在各店铺的协作关系 (不含自己拥有的店铺)
	Memberships []StoreMember `gorm:"foreignKey:SysUserID" json:"-"`
}

func (SysUser) TableName() string {
	return "sys_users"
}
