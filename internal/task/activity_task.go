package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ActivityPruner 活动日志清理
type ActivityPruner interface {
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

// ActivityPruneTask 按保留期限定时清理活动日志
type ActivityPruneTask struct {
	repo      ActivityPruner
	cron      *cron.Cron
	log       *zap.Logger
	cronSpec  string
	retention time.Duration
	now       func() time.Time
}

// NewActivityPruneTask 创建清理任务
func NewActivityPruneTask(repo ActivityPruner, cronSpec string, retention time.Duration, log *zap.Logger) *ActivityPruneTask {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActivityPruneTask{
		repo:      repo,
		cron:      cron.New(cron.WithSeconds()),
		log:       log.Named("activity_prune"),
		cronSpec:  cronSpec,
		retention: retention,
		now:       time.Now,
	}
}

// Start 注册定时任务
func (t *ActivityPruneTask) Start() error {
	_, err := t.cron.AddFunc(t.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.Execute(ctx)
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	t.log.Info("activity prune task started", zap.String("cron", t.cronSpec), zap.Duration("retention", t.retention))
	return nil
}

// Stop 停止任务
func (t *ActivityPruneTask) Stop() {
	<-t.cron.Stop().Done()
}

// Execute 删除超过保留期的日志
func (t *ActivityPruneTask) Execute(ctx context.Context) int64 {
	cutoff := t.now().Add(-t.retention)
	n, err := t.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		t.log.Error("prune activity logs failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		t.log.Info("activity logs pruned", zap.Int64("deleted", n), zap.Time("before", cutoff))
	}
	return n
}
