package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"woo_console_v1_202610/pkg/woo"
)

// Store 店铺状态常量
const (
	StoreStatusActive   = 1 // 正常
	StoreStatusInactive = 2 // 已停用
)

// Store 一个远端 WooCommerce 店铺及其 API 凭证
type Store struct {
	BaseModel
	AuditMixin

	// 1. 归属
	OwnerID int64    `gorm:"index;not null" json:"owner_id"`
	Owner   *SysUser `gorm:"foreignKey:OwnerID" json:"-"`
	Name    string   `gorm:"size:100" json:"name"`

	// 2. API 凭证 (密钥不出现在 JSON 中)
	URL            string `gorm:"size:255" json:"url"`
	ConsumerKey    string `gorm:"size:255" json:"-"`
	ConsumerSecret string `gorm:"size:255" json:"-"`
	APIVersion     string `gorm:"size:10" json:"api_version"`

	// 3. 店铺级覆盖，0 表示使用系统默认
	TimeoutSeconds         int `gorm:"default:0" json:"timeout_seconds"`
	RateLimitRequests      int `gorm:"default:0" json:"rate_limit_requests"`
	RateLimitWindowSeconds int `gorm:"default:0" json:"rate_limit_window_seconds"`

	// 4. 状态
	Status int `gorm:"default:1;comment:状态 1-正常 2-已停用" json:"status"`

	// 5. 连通性 (由 test-connection / 定时巡检写入)
	IsConnected     bool           `gorm:"default:false" json:"is_connected"`
	LastConnectedAt *time.Time     `json:"last_connected_at"`
	LastCheckedAt   *time.Time     `json:"last_checked_at"`
	ConnectionError datatypes.JSON `json:"connection_error,omitempty"`

	Members []StoreMember `gorm:"foreignKey:StoreID" json:"-"`
}

func (Store) TableName() string {
	return "stores"
}

// Record 映射为客户端构造所需的店铺记录
func (s *Store) Record() woo.StoreRecord {
	return woo.StoreRecord{
		ID:                     s.ID,
		OwnerUserID:            s.OwnerID,
		URL:                    s.URL,
		ConsumerKey:            s.ConsumerKey,
		ConsumerSecret:         s.ConsumerSecret,
		APIVersion:             s.APIVersion,
		TimeoutSeconds:         s.TimeoutSeconds,
		RateLimitRequests:      s.RateLimitRequests,
		RateLimitWindowSeconds: s.RateLimitWindowSeconds,
	}
}

// HasCredentials 地址与密钥是否齐全
func (s *Store) HasCredentials() bool {
	return strings.TrimSpace(s.URL) != "" &&
		strings.TrimSpace(s.ConsumerKey) != "" &&
		strings.TrimSpace(s.ConsumerSecret) != ""
}

// LastConnectionError 解析最近一次连通失败信息，没有时返回 nil
func (s *Store) LastConnectionError() *woo.ConnectionError {
	if len(s.ConnectionError) == 0 || string(s.ConnectionError) == "null" {
		return nil
	}
	var cerr woo.ConnectionError
	if err := json.Unmarshal(s.ConnectionError, &cerr); err != nil {
		return nil
	}
	return &cerr
}
