package repository

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/pkg/woo"
)

// ==================== ActivityLogRepository ====================

// ActivityLogRepository 活动日志仓储
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
	ListByStore(ctx context.Context, storeID int64, limit int) ([]model.ActivityLog, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

type activityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepository 创建活动日志仓储
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, entry *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByStore 最新的在前
func (r *activityLogRepo) ListByStore(ctx context.Context, storeID int64, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var logs []model.ActivityLog
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// PruneBefore 删除早于 before 的日志，返回删除条数
func (r *activityLogRepo) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&model.ActivityLog{})
	return res.RowsAffected, res.Error
}

// ==================== ActivityRecorder ====================

// ActivityRecorder 把客户端的活动事件写入 activity_logs
// 写入失败只记日志，不影响调用方
type ActivityRecorder struct {
	repo    ActivityLogRepository
	userID  int64
	storeID int64
	log     *zap.Logger
}

var _ woo.ActivityLogger = (*ActivityRecorder)(nil)

// NewActivityRecorder 绑定到一个 (user, store)
func NewActivityRecorder(repo ActivityLogRepository, userID, storeID int64, log *zap.Logger) *ActivityRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActivityRecorder{repo: repo, userID: userID, storeID: storeID, log: log}
}

func (a *ActivityRecorder) Record(ctx context.Context, action, description, category string, metadata map[string]any) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		a.log.Warn("encode activity metadata failed", zap.String("action", action), zap.Error(err))
		raw = nil
	}

	entry := &model.ActivityLog{
		UserID:      a.userID,
		StoreID:     a.storeID,
		Action:      action,
		Category:    category,
		Description: description,
		Metadata:    datatypes.JSON(raw),
	}
	// 调用被取消时日志仍需落库
	if err := a.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		a.log.Error("write activity log failed",
			zap.Int64("store_id", a.storeID),
			zap.String("action", action),
			zap.Error(err))
	}
}
