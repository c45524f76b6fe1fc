package woo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ==================== 错误定义 ====================

var (
	// ErrStoreNotFound 店铺不存在
	ErrStoreNotFound = errors.New("store not found")
	// ErrAccessDenied 既不是店主，也不是已接受邀请的协作者
	ErrAccessDenied = errors.New("access denied to store")
)

// ==================== 角色 & 动作 ====================

// Role 店铺内角色
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Action 权限动作令牌
type Action string

const (
	ActionRead           Action = "read"
	ActionWrite          Action = "write"
	ActionDelete         Action = "delete"
	ActionManageSettings Action = "manage_settings"
	ActionSyncData       Action = "sync_data"
)

// roleActions 角色 -> 默认动作集合
var roleActions = map[Role][]Action{
	RoleAdmin:  {ActionRead, ActionWrite, ActionDelete, ActionManageSettings, ActionSyncData},
	RoleEditor: {ActionRead, ActionWrite, ActionSyncData},
	RoleViewer: {ActionRead},
}

// ActionForMethod HTTP 方法 -> 需要校验的动作
// GET 不校验 (客户端已配置即可读)
func ActionForMethod(method string) (Action, bool) {
	switch strings.ToUpper(method) {
	case http.MethodDelete:
		return ActionDelete, true
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return ActionWrite, true
	default:
		return "", false
	}
}

// ==================== AccessContext ====================

// AccessContext 构造时计算，之后只读
type AccessContext struct {
	UserID            int64
	IsOwner           bool
	Role              Role
	CustomPermissions []Action
}

// Collaborator 协作者记录 (仅 accepted 状态会被返回)
type Collaborator struct {
	Role        string
	Permissions []string
}

// MemberLookup 查询 (store, user) 对应的已接受协作者记录
// 不存在时返回 (nil, nil)
type MemberLookup interface {
	FindAcceptedMember(ctx context.Context, storeID, userID int64) (*Collaborator, error)
}

// ResolveAccess 计算用户在店铺上的有效角色
func ResolveAccess(ctx context.Context, userID int64, store StoreRecord, members MemberLookup) (AccessContext, error) {
	if userID > 0 && store.OwnerUserID == userID {
		return AccessContext{UserID: userID, IsOwner: true, Role: RoleOwner}, nil
	}
	if members == nil {
		return AccessContext{}, ErrAccessDenied
	}

	member, err := members.FindAcceptedMember(ctx, store.ID, userID)
	if err != nil {
		return AccessContext{}, fmt.Errorf("lookup collaborator: %w", err)
	}
	if member == nil {
		return AccessContext{}, ErrAccessDenied
	}

	role := Role(strings.ToLower(strings.TrimSpace(member.Role)))
	if role == "" {
		role = RoleViewer
	}

	perms := make([]Action, 0, len(member.Permissions))
	for _, p := range member.Permissions {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, Action(p))
		}
	}

	return AccessContext{UserID: userID, Role: role, CustomPermissions: perms}, nil
}

// Can 店主无条件放行；其他角色 = 角色默认集合 ∪ 自定义权限
func (a AccessContext) Can(action Action) bool {
	if a.IsOwner {
		return true
	}
	for _, act := range roleActions[a.Role] {
		if act == action {
			return true
		}
	}
	for _, act := range a.CustomPermissions {
		if act == action {
			return true
		}
	}
	return false
}
