package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"woo_console_v1_202610/internal/config"
	"woo_console_v1_202610/internal/controller"
	"woo_console_v1_202610/internal/middleware"
	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/internal/repository"
	"woo_console_v1_202610/internal/router"
	"woo_console_v1_202610/internal/service"
	"woo_console_v1_202610/internal/task"
	"woo_console_v1_202610/pkg/database"
	"woo_console_v1_202610/pkg/logger"
	"woo_console_v1_202610/pkg/woo"
)

func main() {
	// 1. 配置 (WOOC_CONFIG 指定文件路径，可选)
	cfg, err := config.Load(os.Getenv("WOOC_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 日志
	log := logger.Must(cfg.Log.Level, cfg.Log.Development)
	defer func() { _ = log.Sync() }()

	// 3. 数据库
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatal("init database failed", zap.Error(err))
	}

	// 4. 依赖
	deps := initDependencies(cfg, db, log)

	// 5. 定时任务
	stopTasks := initTasks(cfg, deps, log)
	defer stopTasks()

	// 6. 启动服务
	gin.SetMode(cfg.Server.Mode)
	r := router.SetupRouter(deps.Controllers, router.Options{
		Logger:   log,
		Limiter:  deps.Limiter,
		Gatherer: deps.Registry,
	})
	startServer(cfg.Server.Port, r, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Limiter     *middleware.WindowLimiter
	Registry    *prometheus.Registry
	Services    *Services
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	User     repository.UserRepository
	Store    repository.StoreRepository
	Setting  repository.SettingRepository
	Activity repository.ActivityLogRepository
}

// Services 服务集合
type Services struct {
	User  *service.UserService
	Store *service.StoreService
}

// ==================== 初始化函数 ====================

// initDatabase 连接数据库、迁移表结构并注册审计回调
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	opts := database.DefaultOptions()
	opts.LogLevel = cfg.Database.LogLevel

	db, err := database.InitDB(cfg.Database.DSN, opts,
		// 账号
		&model.SysUser{},
		// 店铺
		&model.Store{}, &model.StoreMember{},
		// 系统
		&model.SysSetting{}, &model.ActivityLog{},
	)
	if err != nil {
		return nil, err
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		return nil, fmt.Errorf("register audit callbacks: %w", err)
	}
	return db, nil
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) *Dependencies {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.AccessTTL,
		Issuer:         cfg.JWT.Issuer,
	})

	// -------- Repo 层 --------
	repos := &Repositories{
		User:     repository.NewUserRepository(db),
		Store:    repository.NewStoreRepository(db),
		Setting:  repository.NewSettingRepository(db),
		Activity: repository.NewActivityLogRepository(db),
	}

	// -------- 基础设施 --------
	// 店铺 API 与控制台 API 共用一个限流器，key 前缀互不重叠
	limiter := middleware.NewWindowLimiter()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// -------- 业务服务 --------
	services := &Services{
		User: service.NewUserService(repos.User),
		Store: service.NewStoreService(service.StoreDeps{
			Stores:   repos.Store,
			Users:    repos.User,
			Settings: repos.Setting,
			Activity: repos.Activity,
			Limiter:  limiter,
			Metrics:  woo.NewMetrics(registry),
			Defaults: cfg.Woo.Defaults(),
			Logger:   log,
		}),
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		User:     controller.NewUserController(services.User),
		Store:    controller.NewStoreController(services.Store),
		Resource: controller.NewResourceController(services.Store),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Limiter:     limiter,
		Registry:    registry,
		Services:    services,
		Controllers: controllers,
	}
}

// ==================== 定时任务 ====================

// initTasks 启动定时任务，返回停止函数
func initTasks(cfg *config.Config, deps *Dependencies, log *zap.Logger) func() {
	var stops []func()

	if cfg.Probe.Enabled {
		probe := task.NewConnectionTask(deps.Repos.Store, deps.Services.Store, log)
		probe.SetSchedule(cfg.Probe.Cron, cfg.Probe.Timeout)
		probe.SetConcurrency(cfg.Probe.Concurrency, 50*time.Millisecond)
		if err := probe.Start(); err != nil {
			log.Fatal("start connection task failed", zap.Error(err))
		}
		stops = append(stops, probe.Stop)
	}

	if cfg.Activity.Retention > 0 {
		prune := task.NewActivityPruneTask(deps.Repos.Activity, cfg.Activity.PruneCron, cfg.Activity.Retention, log)
		if err := prune.Start(); err != nil {
			log.Fatal("start activity prune task failed", zap.Error(err))
		}
		stops = append(stops, prune.Stop)
	}

	log.Info("scheduled tasks started", zap.Int("count", len(stops)))
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(port int, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("server exited")
}
