package controller

import (
	"context"

	"github.com/gin-gonic/gin"

	"woo_console_v1_202610/internal/middleware"
	"woo_console_v1_202610/internal/service"
	"woo_console_v1_202610/pkg/woo"
)

// ResourceController 把店铺 API 资源以 JSON 暴露给控制台
// 每个请求按 (当前用户, 店铺) 构造客户端，权限与限流都在客户端内完成
type ResourceController struct {
	svc *service.StoreService
}

func NewResourceController(svc *service.StoreService) *ResourceController {
	return &ResourceController{svc: svc}
}

type call func(ctx context.Context, client *woo.Client) *woo.Envelope

func (h *ResourceController) invoke(c *gin.Context, fn call) {
	ctx := c.Request.Context()
	client, err := h.svc.NewClient(ctx, middleware.GetUserID(c), pathID(c, "id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeEnvelope(c, fn(ctx, client))
}

// withBody 解析 JSON 请求体后再调用
func (h *ResourceController) withBody(c *gin.Context, fn func(ctx context.Context, client *woo.Client, body woo.Params) *woo.Envelope) {
	body, ok := bodyParams(c)
	if !ok {
		return
	}
	h.invoke(c, func(ctx context.Context, client *woo.Client) *woo.Envelope {
		return fn(ctx, client, body)
	})
}

// ==================== Products ====================

func (h *ResourceController) ListProducts(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListProducts(ctx, queryParams(c))
	})
}

func (h *ResourceController) GetProduct(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.GetProduct(ctx, pathID(c, "pid"))
	})
}

func (h *ResourceController) CreateProduct(c *gin.Context) {
	h.withBody(c, func(ctx context.Context, cl *woo.Client, body woo.Params) *woo.Envelope {
		return cl.CreateProduct(ctx, body)
	})
}

func (h *ResourceController) UpdateProduct(c *gin.Context) {
	h.withBody(c, func(ctx context.Context, cl *woo.Client, body woo.Params) *woo.Envelope {
		return cl.UpdateProduct(ctx, pathID(c, "pid"), body)
	})
}

func (h *ResourceController) DeleteProduct(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.DeleteProduct(ctx, pathID(c, "pid"), woo.Params{"force": c.Query("force") == "true"})
	})
}

func (h *ResourceController) BatchProducts(c *gin.Context) {
	h.withBody(c, func(ctx context.Context, cl *woo.Client, body woo.Params) *woo.Envelope {
		return cl.BatchProducts(ctx, body)
	})
}

func (h *ResourceController) ListCategories(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListProductCategories(ctx, queryParams(c))
	})
}

func (h *ResourceController) ListVariations(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListVariations(ctx, pathID(c, "pid"), queryParams(c))
	})
}

// ==================== Orders ====================

func (h *ResourceController) ListOrders(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListOrders(ctx, queryParams(c))
	})
}

func (h *ResourceController) GetOrder(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.GetOrder(ctx, pathID(c, "oid"))
	})
}

func (h *ResourceController) UpdateOrder(c *gin.Context) {
	h.withBody(c, func(ctx context.Context, cl *woo.Client, body woo.Params) *woo.Envelope {
		return cl.UpdateOrder(ctx, pathID(c, "oid"), body)
	})
}

func (h *ResourceController) ListOrderNotes(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListOrderNotes(ctx, pathID(c, "oid"), queryParams(c))
	})
}

func (h *ResourceController) CreateOrderNote(c *gin.Context) {
	h.withBody(c, func(ctx context.Context, cl *woo.Client, body woo.Params) *woo.Envelope {
		return cl.CreateOrderNote(ctx, pathID(c, "oid"), body)
	})
}

// ==================== Customers / Coupons ====================

func (h *ResourceController) ListCustomers(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListCustomers(ctx, queryParams(c))
	})
}

func (h *ResourceController) ListCoupons(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListCoupons(ctx, queryParams(c))
	})
}

// ==================== Reports / System ====================

// GetReport GET /reports/*type，type 为空时列出报表
func (h *ResourceController) GetReport(c *gin.Context) {
	reportType := c.Param("type")
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		if reportType == "" || reportType == "/" {
			return cl.ListReports(ctx)
		}
		return cl.GetReport(ctx, reportType, queryParams(c))
	})
}

func (h *ResourceController) SystemStatus(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.GetSystemStatus(ctx)
	})
}

func (h *ResourceController) ListSettingGroups(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListSettingGroups(ctx)
	})
}

func (h *ResourceController) ListSettings(c *gin.Context) {
	h.invoke(c, func(ctx context.Context, cl *woo.Client) *woo.Envelope {
		return cl.ListSettings(ctx, c.Param("group"))
	})
}
