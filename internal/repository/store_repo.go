package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/pkg/woo"
)

// ==================== 接口定义 ====================

// StoreRepository 店铺与协作者仓储
// 同时实现 woo.MemberLookup 和 woo.ConnectionRecorder
type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id int64) (*model.Store, error)
	UpdateCredentials(ctx context.Context, id int64, fields map[string]interface{}) error
	ListForUser(ctx context.Context, userID int64) ([]model.Store, error)
	ListConfigured(ctx context.Context) ([]model.Store, error)

	// 协作者
	AddMember(ctx context.Context, member *model.StoreMember) error
	UpdateMemberStatus(ctx context.Context, storeID, userID int64, from, to string) error
	FindAcceptedMember(ctx context.Context, storeID, userID int64) (*woo.Collaborator, error)

	// 连通状态
	MarkConnected(ctx context.Context, storeID int64, at time.Time) error
	MarkDisconnected(ctx context.Context, storeID int64, cerr woo.ConnectionError) error
}

// ErrMemberExists 用户在该店铺已有待处理或已接受的邀请
var ErrMemberExists = errors.New("member already invited")

var (
	_ woo.MemberLookup       = (*storeRepo)(nil)
	_ woo.ConnectionRecorder = (*storeRepo)(nil)
)

// ==================== 仓储实现 ====================

type storeRepo struct {
	db *gorm.DB
}

// NewStoreRepository 创建店铺仓储
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepo{db: db}
}

func (r *storeRepo) Create(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

// GetByID 不存在时返回 (nil, nil)
func (r *storeRepo) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	var store model.Store
	err := r.db.WithContext(ctx).First(&store, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) UpdateCredentials(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Store{}).Where("id = ?", id).Updates(fields).Error
}

// ListForUser 用户拥有的店铺 + 已接受邀请的店铺
func (r *storeRepo) ListForUser(ctx context.Context, userID int64) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("owner_id = ?", userID).
		Or("id IN (?)", r.db.Model(&model.StoreMember{}).
			Select("store_id").
			Where("sys_user_id = ? AND status = ?", userID, model.MemberStatusAccepted)).
		Order("id ASC").
		Find(&stores).Error
	return stores, err
}

// ListConfigured 正常状态且凭证齐全的店铺，供定时巡检使用
func (r *storeRepo) ListConfigured(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("status = ?", model.StoreStatusActive).
		Where("url <> '' AND consumer_key <> '' AND consumer_secret <> ''").
		Order("id ASC").
		Find(&stores).Error
	return stores, err
}

// ==================== 协作者 ====================

// AddMember 新建邀请；已撤销的记录重置为新的邀请，pending / accepted 返回 ErrMemberExists
func (r *storeRepo) AddMember(ctx context.Context, member *model.StoreMember) error {
	if member.Status == "" {
		member.Status = model.MemberStatusPending
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.StoreMember
		err := tx.Where("store_id = ? AND sys_user_id = ?", member.StoreID, member.SysUserID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(member).Error
		}
		if err != nil {
			return err
		}
		if existing.Status != model.MemberStatusRevoked {
			return ErrMemberExists
		}

		res := tx.Model(&model.StoreMember{}).
			Where("id = ? AND status = ?", existing.ID, model.MemberStatusRevoked).
			Updates(map[string]interface{}{
				"role":        member.Role,
				"status":      member.Status,
				"permissions": member.Permissions,
				"invited_by":  member.InvitedBy,
				"accepted_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMemberExists
		}
		member.ID = existing.ID
		member.CreatedAt = existing.CreatedAt
		member.AcceptedAt = nil
		return nil
	})
}

// UpdateMemberStatus 只在当前状态为 from 时切换到 to，否则返回 gorm.ErrRecordNotFound
func (r *storeRepo) UpdateMemberStatus(ctx context.Context, storeID, userID int64, from, to string) error {
	fields := map[string]interface{}{"status": to}
	if to == model.MemberStatusAccepted {
		fields["accepted_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).
		Model(&model.StoreMember{}).
		Where("store_id = ? AND sys_user_id = ? AND status = ?", storeID, userID, from).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindAcceptedMember 只返回 accepted 状态的协作者，不存在时返回 (nil, nil)
func (r *storeRepo) FindAcceptedMember(ctx context.Context, storeID, userID int64) (*woo.Collaborator, error) {
	var member model.StoreMember
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND sys_user_id = ? AND status = ?", storeID, userID, model.MemberStatusAccepted).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &woo.Collaborator{Role: member.Role, Permissions: member.PermissionList()}, nil
}

// ==================== 连通状态 ====================

func (r *storeRepo) MarkConnected(ctx context.Context, storeID int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]interface{}{
			"is_connected":      true,
			"last_connected_at": at,
			"last_checked_at":   at,
			"connection_error":  nil,
		}).Error
}

func (r *storeRepo) MarkDisconnected(ctx context.Context, storeID int64, cerr woo.ConnectionError) error {
	raw, err := json.Marshal(cerr)
	if err != nil {
		return fmt.Errorf("encode connection error: %w", err)
	}
	return r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]interface{}{
			"is_connected":     false,
			"last_checked_at":  cerr.CheckedAt,
			"connection_error": datatypes.JSON(raw),
		}).Error
}
