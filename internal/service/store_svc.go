package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"

	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/internal/repository"
	"woo_console_v1_202610/pkg/woo"
)

var (
	// ErrManageDenied 缺少 manage_settings 权限
	ErrManageDenied = fmt.Errorf("%w: manage_settings required", woo.ErrAccessDenied)
	// ErrMemberExists 重复邀请
	ErrMemberExists = repository.ErrMemberExists
)

var apiVersionRe = regexp.MustCompile(`^v\d+$`)

// ==================== StoreService ====================

// StoreService 店铺管理 + 按 (user, store) 构造 API 客户端
type StoreService struct {
	stores   repository.StoreRepository
	users    repository.UserRepository
	settings repository.SettingRepository
	activity repository.ActivityLogRepository

	limiter    woo.RateLimiter
	metrics    *woo.Metrics
	defaults   woo.Defaults
	clientOpts []woo.Option
	log        *zap.Logger
}

// StoreDeps 依赖集合
type StoreDeps struct {
	Stores   repository.StoreRepository
	Users    repository.UserRepository
	Settings repository.SettingRepository
	Activity repository.ActivityLogRepository
	Limiter  woo.RateLimiter
	Metrics  *woo.Metrics
	Defaults woo.Defaults // 配置文件中的默认值，运行时再叠加 sys_settings
	Logger   *zap.Logger

	// ClientOptions 追加到每个客户端 (测试中注入 Transport)
	ClientOptions []woo.Option
}

// NewStoreService 创建店铺服务
func NewStoreService(deps StoreDeps) *StoreService {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreService{
		stores:     deps.Stores,
		users:      deps.Users,
		settings:   deps.Settings,
		activity:   deps.Activity,
		limiter:    deps.Limiter,
		metrics:    deps.Metrics,
		defaults:   deps.Defaults,
		clientOpts: deps.ClientOptions,
		log:        log.Named("store_svc"),
	}
}

// ==================== 客户端构造 ====================

// NewClient 为 (user, store) 构造客户端
// 店铺不存在返回 woo.ErrStoreNotFound；无权访问返回 woo.ErrAccessDenied
// 凭证不全时仍返回客户端，调用时得到 not_configured
func (s *StoreService) NewClient(ctx context.Context, userID, storeID int64) (*woo.Client, error) {
	store, access, err := s.resolve(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}

	cred := woo.NewCredential(store.Record(), s.loadDefaults(ctx))

	opts := []woo.Option{
		woo.WithLogger(s.log),
		woo.WithConnectionRecorder(s.stores),
		woo.WithMetrics(s.metrics),
	}
	if s.limiter != nil {
		opts = append(opts, woo.WithRateLimiter(s.limiter))
	}
	if s.activity != nil {
		opts = append(opts, woo.WithActivityLogger(repository.NewActivityRecorder(s.activity, userID, storeID, s.log)))
	}
	opts = append(opts, s.clientOpts...)

	return woo.NewClient(cred, access, opts...), nil
}

// TestConnection 连通性检测并持久化结果
func (s *StoreService) TestConnection(ctx context.Context, userID, storeID int64) (*woo.Envelope, error) {
	client, err := s.NewClient(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}
	return client.TestConnection(ctx), nil
}

func (s *StoreService) resolve(ctx context.Context, userID, storeID int64) (*model.Store, woo.AccessContext, error) {
	if storeID <= 0 {
		return nil, woo.AccessContext{}, woo.ErrStoreNotFound
	}
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, woo.AccessContext{}, fmt.Errorf("load store %d: %w", storeID, err)
	}
	if store == nil {
		return nil, woo.AccessContext{}, woo.ErrStoreNotFound
	}

	if s.users != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, woo.AccessContext{}, fmt.Errorf("load user %d: %w", userID, err)
		}
		if user == nil || !user.IsActive {
			return nil, woo.AccessContext{}, woo.ErrAccessDenied
		}
	}

	access, err := woo.ResolveAccess(ctx, userID, store.Record(), s.stores)
	if err != nil {
		return nil, woo.AccessContext{}, err
	}
	return store, access, nil
}

// loadDefaults 配置默认值叠加 sys_settings，读取失败时退回配置默认值
func (s *StoreService) loadDefaults(ctx context.Context) woo.Defaults {
	if s.settings == nil {
		return s.defaults
	}
	d, err := s.settings.LoadDefaults(ctx, s.defaults)
	if err != nil {
		s.log.Warn("load system settings failed, using config defaults", zap.Error(err))
		return s.defaults
	}
	return d
}

// ==================== 店铺管理 ====================

// StoreInput 创建/更新店铺的输入
type StoreInput struct {
	Name                   string `json:"name"`
	URL                    string `json:"url"`
	ConsumerKey            string `json:"consumer_key"`
	ConsumerSecret         string `json:"consumer_secret"`
	APIVersion             string `json:"api_version"`
	TimeoutSeconds         int    `json:"timeout_seconds"`
	RateLimitRequests      int    `json:"rate_limit_requests"`
	RateLimitWindowSeconds int    `json:"rate_limit_window_seconds"`
}

// Validate 凭证可以暂缺 (店铺先建档，稍后补充)，但地址格式必须正确
func (in StoreInput) Validate() error {
	return in.validate(true)
}

func (in StoreInput) validate(requireName bool) error {
	nameRules := []validation.Rule{validation.Length(1, 100)}
	if requireName {
		nameRules = append(nameRules, validation.Required)
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, nameRules...),
		validation.Field(&in.URL, is.URL),
		validation.Field(&in.APIVersion, validation.Match(apiVersionRe)),
		validation.Field(&in.TimeoutSeconds, validation.Min(0), validation.Max(300)),
		validation.Field(&in.RateLimitRequests, validation.Min(0)),
		validation.Field(&in.RateLimitWindowSeconds, validation.Min(0)),
	)
}

// CreateStore 当前用户成为店主
func (s *StoreService) CreateStore(ctx context.Context, ownerID int64, in StoreInput) (*model.Store, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	store := &model.Store{
		OwnerID:                ownerID,
		Name:                   strings.TrimSpace(in.Name),
		URL:                    strings.TrimSpace(in.URL),
		ConsumerKey:            strings.TrimSpace(in.ConsumerKey),
		ConsumerSecret:         strings.TrimSpace(in.ConsumerSecret),
		APIVersion:             strings.TrimSpace(in.APIVersion),
		TimeoutSeconds:         in.TimeoutSeconds,
		RateLimitRequests:      in.RateLimitRequests,
		RateLimitWindowSeconds: in.RateLimitWindowSeconds,
		Status:                 model.StoreStatusActive,
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	return store, nil
}

// ListStores 当前用户可访问的店铺
func (s *StoreService) ListStores(ctx context.Context, userID int64) ([]model.Store, error) {
	return s.stores.ListForUser(ctx, userID)
}

// GetStore 需要对店铺有访问权限
func (s *StoreService) GetStore(ctx context.Context, userID, storeID int64) (*model.Store, woo.AccessContext, error) {
	return s.resolve(ctx, userID, storeID)
}

// UpdateStore 修改凭证或覆盖参数，需要 manage_settings
// 空字符串字段保持不变；三个覆盖参数整体替换，0 表示回到系统默认
func (s *StoreService) UpdateStore(ctx context.Context, userID, storeID int64, in StoreInput) error {
	_, access, err := s.resolve(ctx, userID, storeID)
	if err != nil {
		return err
	}
	if !access.Can(woo.ActionManageSettings) {
		return ErrManageDenied
	}
	if err := in.validate(false); err != nil {
		return err
	}

	fields := map[string]interface{}{
		"timeout_seconds":           in.TimeoutSeconds,
		"rate_limit_requests":       in.RateLimitRequests,
		"rate_limit_window_seconds": in.RateLimitWindowSeconds,
	}
	for col, v := range map[string]string{
		"name":            in.Name,
		"url":             in.URL,
		"consumer_key":    in.ConsumerKey,
		"consumer_secret": in.ConsumerSecret,
		"api_version":     in.APIVersion,
	} {
		if v = strings.TrimSpace(v); v != "" {
			fields[col] = v
		}
	}
	return s.stores.UpdateCredentials(ctx, storeID, fields)
}

// ==================== 协作者 ====================

// MemberInput 邀请协作者
type MemberInput struct {
	UserID      int64    `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (in MemberInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Role, validation.Required, validation.In(
			string(woo.RoleAdmin), string(woo.RoleEditor), string(woo.RoleViewer))),
		validation.Field(&in.Permissions, validation.Each(validation.In(
			string(woo.ActionRead), string(woo.ActionWrite), string(woo.ActionDelete),
			string(woo.ActionManageSettings), string(woo.ActionSyncData)))),
	)
}

// InviteMember 邀请协作者，需要 manage_settings；邀请需被接受后才生效
func (s *StoreService) InviteMember(ctx context.Context, actorID, storeID int64, in MemberInput) (*model.StoreMember, error) {
	store, access, err := s.resolve(ctx, actorID, storeID)
	if err != nil {
		return nil, err
	}
	if !access.Can(woo.ActionManageSettings) {
		return nil, ErrManageDenied
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.UserID == store.OwnerID {
		return nil, validation.Errors{"user_id": errors.New("store owner cannot be invited as a member")}
	}

	member := &model.StoreMember{
		StoreID:   storeID,
		SysUserID: in.UserID,
		Role:      in.Role,
		Status:    model.MemberStatusPending,
		InvitedBy: actorID,
	}
	member.SetPermissions(in.Permissions)
	if err := s.stores.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return member, nil
}

// RespondInvite 被邀请人接受或拒绝，只对 pending 状态的邀请生效
func (s *StoreService) RespondInvite(ctx context.Context, userID, storeID int64, accept bool) error {
	status := model.MemberStatusRevoked
	if accept {
		status = model.MemberStatusAccepted
	}
	return s.stores.UpdateMemberStatus(ctx, storeID, userID, model.MemberStatusPending, status)
}

// ==================== 活动日志 ====================

// ListActivity 店铺最近的 API 活动，任何有访问权限的成员可查看
func (s *StoreService) ListActivity(ctx context.Context, userID, storeID int64, limit int) ([]model.ActivityLog, error) {
	if _, _, err := s.resolve(ctx, userID, storeID); err != nil {
		return nil, err
	}
	if s.activity == nil {
		return nil, nil
	}
	return s.activity.ListByStore(ctx, storeID, limit)
}
