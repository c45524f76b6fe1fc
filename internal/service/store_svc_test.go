package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"woo_console_v1_202610/internal/middleware"
	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/internal/repository"
	"woo_console_v1_202610/pkg/woo"
)

// ==================== 测试辅助 ====================

type svcFixture struct {
	svc      *StoreService
	db       *gorm.DB
	stores   repository.StoreRepository
	users    repository.UserRepository
	settings repository.SettingRepository
	activity repository.ActivityLogRepository
	server   *httptest.Server
	hits     atomic.Int32
	status   atomic.Int32
}

func setupStoreSvc(t *testing.T) *svcFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.SysUser{}, &model.Store{}, &model.StoreMember{}, &model.SysSetting{}, &model.ActivityLog{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	f := &svcFixture{
		db:       db,
		stores:   repository.NewStoreRepository(db),
		users:    repository.NewUserRepository(db),
		settings: repository.NewSettingRepository(db),
		activity: repository.NewActivityLogRepository(db),
	}
	f.status.Store(http.StatusOK)
	f.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(f.status.Load()))
		io.WriteString(w, `{"id":1}`)
	}))
	t.Cleanup(f.server.Close)

	f.svc = NewStoreService(StoreDeps{
		Stores:   f.stores,
		Users:    f.users,
		Settings: f.settings,
		Activity: f.activity,
		Limiter:  middleware.NewWindowLimiter(),
		Defaults: woo.DefaultDefaults(),
		ClientOptions: []woo.Option{
			woo.WithTransport(f.server.Client().Transport),
			woo.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		},
	})
	return f
}

func (f *svcFixture) user(t *testing.T, name string) int64 {
	t.Helper()
	u := &model.SysUser{Username: name, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *svcFixture) store(t *testing.T, ownerID int64) *model.Store {
	t.Helper()
	s, err := f.svc.CreateStore(context.Background(), ownerID, StoreInput{
		Name:           "Demo",
		URL:            f.server.URL,
		ConsumerKey:    "ck_1",
		ConsumerSecret: "cs_1",
	})
	require.NoError(t, err)
	return s
}

// ==================== 客户端构造 ====================

func TestStoreService_NewClient_Access(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	stranger := f.user(t, "stranger")
	s := f.store(t, owner)

	c, err := f.svc.NewClient(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.True(t, c.Access().IsOwner)
	assert.True(t, c.IsConfigured())

	_, err = f.svc.NewClient(ctx, stranger, s.ID)
	assert.ErrorIs(t, err, woo.ErrAccessDenied)

	_, err = f.svc.NewClient(ctx, owner, 404)
	assert.ErrorIs(t, err, woo.ErrStoreNotFound)

	require.NoError(t, f.users.SetActive(ctx, owner, false))
	_, err = f.svc.NewClient(ctx, owner, s.ID)
	assert.ErrorIs(t, err, woo.ErrAccessDenied)
}

func TestStoreService_NewClient_UnconfiguredStore(t *testing.T) {
	f := setupStoreSvc(t)
	owner := f.user(t, "owner")
	s, err := f.svc.CreateStore(context.Background(), owner, StoreInput{Name: "Draft"})
	require.NoError(t, err)

	c, err := f.svc.NewClient(context.Background(), owner, s.ID)
	require.NoError(t, err)
	env := c.ListProducts(context.Background(), nil)
	assert.Equal(t, woo.CodeNotConfigured, env.ErrorCode)
	assert.Equal(t, int32(0), f.hits.Load())
}

func TestStoreService_SystemSettingsApply(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	s := f.store(t, owner)

	require.NoError(t, f.settings.Set(ctx, model.SettingRateLimitRequests, "1"))

	c, err := f.svc.NewClient(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.True(t, c.ListOrders(ctx, nil).Success)
	assert.Equal(t, woo.CodeRateLimitExceeded, c.ListOrders(ctx, nil).ErrorCode)
	// 不同资源分组各自计数
	assert.True(t, c.ListCoupons(ctx, nil).Success)
}

func TestStoreService_ActivityLogged(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	s := f.store(t, owner)

	c, err := f.svc.NewClient(ctx, owner, s.ID)
	require.NoError(t, err)
	c.GetProduct(ctx, 1)
	c.GetProduct(ctx, 0)

	logs, err := f.activity.ListByStore(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, woo.ActivityAPIError, logs[0].Action)
	assert.Equal(t, woo.ActivityAPISuccess, logs[1].Action)
	assert.Equal(t, owner, logs[1].UserID)
}

// ==================== 连通性 ====================

func TestStoreService_TestConnection(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	s := f.store(t, owner)

	env, err := f.svc.TestConnection(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.True(t, env.Success)

	got, err := f.stores.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsConnected)

	f.status.Store(http.StatusUnauthorized)
	env, err = f.svc.TestConnection(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.False(t, env.Success)

	got, err = f.stores.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsConnected)
	require.NotNil(t, got.LastConnectionError())
	assert.Equal(t, "http_401", got.LastConnectionError().Code)
}

func TestStoreService_TestConnection_CancelledRequest(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	s := f.store(t, owner)

	client, err := f.svc.NewClient(ctx, owner, s.ID)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	env := client.TestConnection(cancelled)
	assert.Equal(t, woo.CodeTransportError, env.ErrorCode)

	got, err := f.stores.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsConnected)
	assert.NotNil(t, got.LastCheckedAt)
	require.NotNil(t, got.LastConnectionError())
	assert.Equal(t, woo.CodeTransportError, got.LastConnectionError().Code)
}

// ==================== 店铺管理 & 协作者 ====================

func TestStoreService_CreateStoreValidation(t *testing.T) {
	f := setupStoreSvc(t)
	_, err := f.svc.CreateStore(context.Background(), 1, StoreInput{Name: "", URL: "not a url"})
	assert.Error(t, err)

	_, err = f.svc.CreateStore(context.Background(), 1, StoreInput{Name: "x", APIVersion: "3"})
	assert.Error(t, err)
}

func TestStoreService_MemberFlow(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	editor := f.user(t, "editor")
	s := f.store(t, owner)

	_, err := f.svc.InviteMember(ctx, owner, s.ID, MemberInput{UserID: editor, Role: "editor"})
	require.NoError(t, err)

	// 未接受前无权访问
	_, err = f.svc.NewClient(ctx, editor, s.ID)
	assert.ErrorIs(t, err, woo.ErrAccessDenied)

	require.NoError(t, f.svc.RespondInvite(ctx, editor, s.ID, true))
	c, err := f.svc.NewClient(ctx, editor, s.ID)
	require.NoError(t, err)
	assert.Equal(t, woo.RoleEditor, c.Access().Role)

	assert.True(t, c.UpdateProduct(ctx, 42, woo.Params{"name": "New"}).Success)
	assert.Equal(t, woo.CodePermissionDenied, c.DeleteProduct(ctx, 42, nil).ErrorCode)

	// editor 不能改凭证，也不能邀请
	err = f.svc.UpdateStore(ctx, editor, s.ID, StoreInput{ConsumerKey: "ck_2"})
	assert.True(t, errors.Is(err, woo.ErrAccessDenied))
	_, err = f.svc.InviteMember(ctx, editor, s.ID, MemberInput{UserID: 99, Role: "viewer"})
	assert.ErrorIs(t, err, ErrManageDenied)

	stores, err := f.svc.ListStores(ctx, editor)
	require.NoError(t, err)
	assert.Len(t, stores, 1)
}

func TestStoreService_DeclinedInvite(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	bob := f.user(t, "bob")
	s := f.store(t, owner)

	_, err := f.svc.InviteMember(ctx, owner, s.ID, MemberInput{UserID: bob, Role: "viewer"})
	require.NoError(t, err)

	// 重复邀请
	_, err = f.svc.InviteMember(ctx, owner, s.ID, MemberInput{UserID: bob, Role: "viewer"})
	assert.ErrorIs(t, err, ErrMemberExists)

	require.NoError(t, f.svc.RespondInvite(ctx, bob, s.ID, false))

	// 拒绝后不能再自行接受
	err = f.svc.RespondInvite(ctx, bob, s.ID, true)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = f.svc.NewClient(ctx, bob, s.ID)
	assert.ErrorIs(t, err, woo.ErrAccessDenied)

	// 重新邀请复用原记录，角色以新邀请为准
	m, err := f.svc.InviteMember(ctx, owner, s.ID, MemberInput{UserID: bob, Role: "editor"})
	require.NoError(t, err)
	assert.Equal(t, model.MemberStatusPending, m.Status)

	var count int64
	require.NoError(t, f.db.Model(&model.StoreMember{}).Where("store_id = ? AND sys_user_id = ?", s.ID, bob).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, f.svc.RespondInvite(ctx, bob, s.ID, true))
	c, err := f.svc.NewClient(ctx, bob, s.ID)
	require.NoError(t, err)
	assert.Equal(t, woo.RoleEditor, c.Access().Role)

	// 已接受的邀请不能再次响应
	assert.ErrorIs(t, f.svc.RespondInvite(ctx, bob, s.ID, false), gorm.ErrRecordNotFound)
}

func TestStoreService_UpdateStore(t *testing.T) {
	f := setupStoreSvc(t)
	ctx := context.Background()
	owner := f.user(t, "owner")
	s := f.store(t, owner)

	require.NoError(t, f.svc.UpdateStore(ctx, owner, s.ID, StoreInput{ConsumerSecret: "cs_2", RateLimitRequests: 5}))

	got, err := f.stores.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_2", got.ConsumerSecret)
	assert.Equal(t, "ck_1", got.ConsumerKey)
	assert.Equal(t, "Demo", got.Name)
	assert.Equal(t, 5, got.RateLimitRequests)
}

func TestMemberInput_Validate(t *testing.T) {
	assert.NoError(t, MemberInput{UserID: 2, Role: "admin", Permissions: []string{"sync_data"}}.Validate())
	assert.Error(t, MemberInput{UserID: 2, Role: "owner"}.Validate())
	assert.Error(t, MemberInput{UserID: 2, Role: "viewer", Permissions: []string{"root"}}.Validate())
	assert.Error(t, MemberInput{Role: "viewer"}.Validate())
}
