package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/pkg/woo"
)

// ==================== ConnectionTask 店铺连通性巡检 ====================

// StoreLister 巡检对象来源
type StoreLister interface {
	ListConfigured(ctx context.Context) ([]model.Store, error)
}

// ConnectionTester 以指定用户身份执行连通性检测
type ConnectionTester interface {
	TestConnection(ctx context.Context, userID, storeID int64) (*woo.Envelope, error)
}

// ConnectionTask 定时对所有已配置店铺做连通性检测，结果由客户端写回店铺
type ConnectionTask struct {
	stores StoreLister
	tester ConnectionTester
	cron   *cron.Cron
	log    *zap.Logger

	cronSpec         string
	timeout          time.Duration
	concurrencyLimit int
	sleepTime        time.Duration
}

// NewConnectionTask 创建巡检任务
func NewConnectionTask(stores StoreLister, tester ConnectionTester, log *zap.Logger) *ConnectionTask {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConnectionTask{
		stores:           stores,
		tester:           tester,
		cron:             cron.New(cron.WithSeconds()),
		log:              log.Named("connection_task"),
		cronSpec:         "0 */15 * * * *",
		timeout:          2 * time.Minute,
		concurrencyLimit: 5,
		sleepTime:        50 * time.Millisecond,
	}
}

// SetSchedule 设置 cron 表达式 (带秒) 与单轮超时
func (t *ConnectionTask) SetSchedule(cronSpec string, timeout time.Duration) {
	if cronSpec != "" {
		t.cronSpec = cronSpec
	}
	if timeout > 0 {
		t.timeout = timeout
	}
}

// SetConcurrency 设置并发参数
func (t *ConnectionTask) SetConcurrency(limit int, sleep time.Duration) {
	if limit > 0 {
		t.concurrencyLimit = limit
	}
	t.sleepTime = sleep
}

// Start 注册定时任务并立即执行一轮
func (t *ConnectionTask) Start() error {
	if _, err := t.cron.AddFunc(t.cronSpec, t.runOnce); err != nil {
		return err
	}

	go t.runOnce()

	t.cron.Start()
	t.log.Info("connection task started", zap.String("cron", t.cronSpec))
	return nil
}

// Stop 等待正在执行的任务结束
func (t *ConnectionTask) Stop() {
	<-t.cron.Stop().Done()
	t.log.Info("connection task stopped")
}

func (t *ConnectionTask) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	t.Execute(ctx)
}

// ProbeSummary 一轮巡检结果
type ProbeSummary struct {
	Total     int
	Connected int
	Failed    int
}

// Execute 执行一轮巡检；以店主身份调用，探测自身不需要写权限
func (t *ConnectionTask) Execute(ctx context.Context) ProbeSummary {
	stores, err := t.stores.ListConfigured(ctx)
	if err != nil {
		t.log.Error("list configured stores failed", zap.Error(err))
		return ProbeSummary{}
	}
	if len(stores) == 0 {
		t.log.Debug("no configured stores")
		return ProbeSummary{}
	}

	var (
		wg                sync.WaitGroup
		connected, failed atomic.Int32
	)
	sem := make(chan struct{}, t.concurrencyLimit)

	for i := range stores {
		store := stores[i]
		select {
		case <-ctx.Done():
			t.log.Warn("connection task timeout, stopping")
			wg.Wait()
			return ProbeSummary{Total: len(stores), Connected: int(connected.Load()), Failed: int(failed.Load())}
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		if t.sleepTime > 0 {
			time.Sleep(t.sleepTime)
		}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			env, err := t.tester.TestConnection(ctx, store.OwnerID, store.ID)
			switch {
			case err != nil:
				failed.Add(1)
				t.log.Error("probe store failed", zap.Int64("store_id", store.ID), zap.Error(err))
			case env.Success:
				connected.Add(1)
			default:
				failed.Add(1)
				t.log.Warn("store unreachable",
					zap.Int64("store_id", store.ID),
					zap.String("error_code", env.ErrorCode),
					zap.String("error", env.Error))
			}
		}()
	}

	wg.Wait()
	summary := ProbeSummary{Total: len(stores), Connected: int(connected.Load()), Failed: int(failed.Load())}
	t.log.Info("connection check finished",
		zap.Int("total", summary.Total),
		zap.Int("connected", summary.Connected),
		zap.Int("failed", summary.Failed))
	return summary
}
