package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"woo_console_v1_202610/internal/controller"
	"woo_console_v1_202610/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	User     *controller.UserController
	Store    *controller.StoreController
	Resource *controller.ResourceController
}

// Options 路由依赖
type Options struct {
	Logger   *zap.Logger
	Limiter  *middleware.WindowLimiter
	Gatherer prometheus.Gatherer // 为空时不注册 /metrics

	// 手动连通性检测的频率限制 (每用户)
	ProbeLimit  int
	ProbeWindow time.Duration
}

// SetupRouter 创建 gin 引擎并注册所有路由
func SetupRouter(ctl *Controllers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ProbeLimit <= 0 {
		opts.ProbeLimit = 5
	}
	if opts.ProbeWindow <= 0 {
		opts.ProbeWindow = time.Minute
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")

	// 1. 公开接口
	auth := v1.Group("/auth")
	{
		auth.POST("/register", ctl.User.Register)
		auth.POST("/login", ctl.User.Login)
	}

	// 2. 需要登录
	private := v1.Group("", middleware.JWTAuth(), middleware.AuditContext())
	{
		private.GET("/auth/profile", ctl.User.GetProfile)
		private.PUT("/auth/password", ctl.User.ChangePassword)
		private.DELETE("/auth/account", ctl.User.Deactivate)
	}

	stores := private.Group("/stores")
	{
		stores.POST("", ctl.Store.Create)
		stores.GET("", ctl.Store.List)
		stores.GET("/:id", ctl.Store.Get)
		stores.PUT("/:id", ctl.Store.Update)
		stores.GET("/:id/activity", ctl.Store.Activity)
		stores.POST("/:id/members", ctl.Store.Invite)
		stores.POST("/:id/invitation", ctl.Store.RespondInvite)

		if opts.Limiter != nil {
			stores.POST("/:id/test-connection",
				middleware.APIRateLimit(opts.Limiter, "probe", opts.ProbeLimit, opts.ProbeWindow),
				ctl.Store.TestConnection,
			)
		} else {
			stores.POST("/:id/test-connection", ctl.Store.TestConnection)
		}
	}

	// 3. 店铺 API 代理
	res := stores.Group("/:id")
	{
		res.GET("/products", ctl.Resource.ListProducts)
		res.POST("/products", ctl.Resource.CreateProduct)
		res.POST("/products/batch", ctl.Resource.BatchProducts)
		res.GET("/products/:pid", ctl.Resource.GetProduct)
		res.PUT("/products/:pid", ctl.Resource.UpdateProduct)
		res.DELETE("/products/:pid", ctl.Resource.DeleteProduct)
		res.GET("/products/:pid/variations", ctl.Resource.ListVariations)
		res.GET("/categories", ctl.Resource.ListCategories)

		res.GET("/orders", ctl.Resource.ListOrders)
		res.GET("/orders/:oid", ctl.Resource.GetOrder)
		res.PUT("/orders/:oid", ctl.Resource.UpdateOrder)
		res.GET("/orders/:oid/notes", ctl.Resource.ListOrderNotes)
		res.POST("/orders/:oid/notes", ctl.Resource.CreateOrderNote)

		res.GET("/customers", ctl.Resource.ListCustomers)
		res.GET("/coupons", ctl.Resource.ListCoupons)

		res.GET("/reports/*type", ctl.Resource.GetReport)
		res.GET("/settings", ctl.Resource.ListSettingGroups)
		res.GET("/settings/:group", ctl.Resource.ListSettings)
		res.GET("/system-status", ctl.Resource.SystemStatus)
	}

	return r
}
