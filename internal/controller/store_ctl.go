package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"woo_console_v1_202610/internal/middleware"
	"woo_console_v1_202610/internal/service"
)

// StoreController 店铺管理与连通性检测
type StoreController struct {
	svc *service.StoreService
}

func NewStoreController(svc *service.StoreService) *StoreController {
	return &StoreController{svc: svc}
}

// ==========================================
// 1. 店铺
// ==========================================

// Create 创建店铺，当前用户成为店主
// POST /api/v1/stores
func (h *StoreController) Create(c *gin.Context) {
	var req service.StoreInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	store, err := h.svc.CreateStore(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

// List 当前用户可访问的店铺
// GET /api/v1/stores
func (h *StoreController) List(c *gin.Context) {
	stores, err := h.svc.ListStores(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": stores, "total": len(stores)})
}

// Get 店铺详情 + 当前用户的角色
// GET /api/v1/stores/:id
func (h *StoreController) Get(c *gin.Context) {
	store, access, err := h.svc.GetStore(c.Request.Context(), middleware.GetUserID(c), pathID(c, "id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"store":            store,
		"configured":       store.HasCredentials(),
		"role":             access.Role,
		"connection_error": store.LastConnectionError(),
	})
}

// Update 修改凭证或覆盖参数
// PUT /api/v1/stores/:id
func (h *StoreController) Update(c *gin.Context) {
	var req service.StoreInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.UpdateStore(c.Request.Context(), middleware.GetUserID(c), pathID(c, "id"), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

// TestConnection 连通性检测，结果写回店铺
// POST /api/v1/stores/:id/test-connection
func (h *StoreController) TestConnection(c *gin.Context) {
	env, err := h.svc.TestConnection(c.Request.Context(), middleware.GetUserID(c), pathID(c, "id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeEnvelope(c, env)
}

// Activity 最近的 API 活动
// GET /api/v1/stores/:id/activity?limit=50
func (h *StoreController) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.svc.ListActivity(c.Request.Context(), middleware.GetUserID(c), pathID(c, "id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": logs})
}

// ==========================================
// 2. 协作者
// ==========================================

// Invite 邀请协作者
// POST /api/v1/stores/:id/members
func (h *StoreController) Invite(c *gin.Context) {
	var req service.MemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	member, err := h.svc.InviteMember(c.Request.Context(), middleware.GetUserID(c), pathID(c, "id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RespondInvite 接受或拒绝邀请
// POST /api/v1/stores/:id/invitation?accept=true
func (h *StoreController) RespondInvite(c *gin.Context) {
	accept := c.DefaultQuery("accept", "true") == "true"
	if err := h.svc.RespondInvite(c.Request.Context(), middleware.GetUserID(c), pathID(c, "id"), accept); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success"})
}
