package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"woo_console_v1_202610/internal/middleware"
	"woo_console_v1_202610/internal/service"
)

// ==================== UserController 用户控制器 ====================

// UserController 账号注册、登录与个人信息
type UserController struct {
	userService *service.UserService
}

// NewUserController 创建用户控制器
func NewUserController(userService *service.UserService) *UserController {
	return &UserController{userService: userService}
}

// Register 注册
// POST /api/v1/auth/register
func (c *UserController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return
	}

	user, err := c.userService.Register(ctx.Request.Context(), req)
	if errors.Is(err, service.ErrUsernameExists) {
		ctx.JSON(http.StatusConflict, gin.H{"code": "username_exists", "message": err.Error()})
		return
	}
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, user)
}

// Login 用户登录
// POST /api/v1/auth/login
func (c *UserController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return
	}

	resp, err := c.userService.Login(ctx.Request.Context(), req)
	if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrUserDisabled) {
		ctx.JSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": err.Error()})
		return
	}
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetProfile 获取当前用户信息
// GET /api/v1/auth/profile
func (c *UserController) GetProfile(ctx *gin.Context) {
	user, err := c.userService.GetProfile(ctx.Request.Context(), middleware.GetUserID(ctx))
	if errors.Is(err, service.ErrUserNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": err.Error()})
		return
	}
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

// ChangePassword 修改密码
// PUT /api/v1/auth/password
func (c *UserController) ChangePassword(ctx *gin.Context) {
	var req service.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return
	}

	err := c.userService.ChangePassword(ctx.Request.Context(), middleware.GetUserID(ctx), req)
	if errors.Is(err, service.ErrInvalidOldPassword) {
		badRequest(ctx, err.Error())
		return
	}
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "密码修改成功"})
}

// Deactivate 停用当前账号
// DELETE /api/v1/auth/account
func (c *UserController) Deactivate(ctx *gin.Context) {
	var req service.DeactivateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "参数错误: "+err.Error())
		return
	}

	err := c.userService.Deactivate(ctx.Request.Context(), middleware.GetUserID(ctx), req)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		badRequest(ctx, err.Error())
	case errors.Is(err, service.ErrUserDisabled):
		ctx.JSON(http.StatusForbidden, gin.H{"code": "user_disabled", "message": err.Error()})
	case errors.Is(err, service.ErrUserNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": err.Error()})
	case err != nil:
		writeError(ctx, err)
	default:
		ctx.JSON(http.StatusOK, gin.H{"message": "账号已停用"})
	}
}
