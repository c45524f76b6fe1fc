package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/pkg/woo"
)

func seedStore(t *testing.T, repo StoreRepository, store *model.Store) *model.Store {
	t.Helper()
	if store.Status == 0 {
		store.Status = model.StoreStatusActive
	}
	require.NoError(t, repo.Create(context.Background(), store))
	return store
}

func TestStoreRepo_GetByID(t *testing.T) {
	repo := NewStoreRepository(setupTestDB(t))
	ctx := context.Background()

	s := seedStore(t, repo, &model.Store{OwnerID: 1, URL: "https://a.test", ConsumerKey: "k", ConsumerSecret: "s", TimeoutSeconds: 12})

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	rec := got.Record()
	assert.Equal(t, int64(1), rec.OwnerUserID)
	assert.Equal(t, 12, rec.TimeoutSeconds)
	assert.True(t, got.HasCredentials())

	missing, err := repo.GetByID(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStoreRepo_FindAcceptedMember(t *testing.T) {
	repo := NewStoreRepository(setupTestDB(t))
	ctx := context.Background()
	s := seedStore(t, repo, &model.Store{OwnerID: 1})

	m := &model.StoreMember{StoreID: s.ID, SysUserID: 2, Role: "editor"}
	m.SetPermissions([]string{"delete"})
	require.NoError(t, repo.AddMember(ctx, m))
	assert.Equal(t, model.MemberStatusPending, m.Status)

	// 待接受的邀请不生效
	c, err := repo.FindAcceptedMember(ctx, s.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, repo.UpdateMemberStatus(ctx, s.ID, 2, model.MemberStatusPending, model.MemberStatusAccepted))
	c, err = repo.FindAcceptedMember(ctx, s.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "editor", c.Role)
	assert.Equal(t, []string{"delete"}, c.Permissions)

	require.NoError(t, repo.UpdateMemberStatus(ctx, s.ID, 2, model.MemberStatusAccepted, model.MemberStatusRevoked))
	c, err = repo.FindAcceptedMember(ctx, s.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, c)

	assert.ErrorIs(t, repo.UpdateMemberStatus(ctx, s.ID, 77, model.MemberStatusPending, model.MemberStatusAccepted), gorm.ErrRecordNotFound)
}

func TestStoreRepo_MemberStatusTransition(t *testing.T) {
	repo := NewStoreRepository(setupTestDB(t))
	ctx := context.Background()
	s := seedStore(t, repo, &model.Store{OwnerID: 1})

	require.NoError(t, repo.AddMember(ctx, &model.StoreMember{StoreID: s.ID, SysUserID: 2, Role: "viewer", InvitedBy: 1}))
	assert.ErrorIs(t, repo.AddMember(ctx, &model.StoreMember{StoreID: s.ID, SysUserID: 2, Role: "viewer"}), ErrMemberExists)

	require.NoError(t, repo.UpdateMemberStatus(ctx, s.ID, 2, model.MemberStatusPending, model.MemberStatusRevoked))

	// 已撤销的记录不能直接变为 accepted
	err := repo.UpdateMemberStatus(ctx, s.ID, 2, model.MemberStatusPending, model.MemberStatusAccepted)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 重新邀请重置为 pending
	again := &model.StoreMember{StoreID: s.ID, SysUserID: 2, Role: "editor", InvitedBy: 1}
	again.SetPermissions([]string{"delete"})
	require.NoError(t, repo.AddMember(ctx, again))
	assert.NotZero(t, again.ID)

	require.NoError(t, repo.UpdateMemberStatus(ctx, s.ID, 2, model.MemberStatusPending, model.MemberStatusAccepted))
	c, err := repo.FindAcceptedMember(ctx, s.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "editor", c.Role)
	assert.Equal(t, []string{"delete"}, c.Permissions)

	assert.ErrorIs(t, repo.AddMember(ctx, &model.StoreMember{StoreID: s.ID, SysUserID: 2, Role: "viewer"}), ErrMemberExists)
}

func TestStoreRepo_ListForUser(t *testing.T) {
	repo := NewStoreRepository(setupTestDB(t))
	ctx := context.Background()

	own := seedStore(t, repo, &model.Store{OwnerID: 5, Name: "own"})
	shared := seedStore(t, repo, &model.Store{OwnerID: 1, Name: "shared"})
	pending := seedStore(t, repo, &model.Store{OwnerID: 1, Name: "pending"})
	seedStore(t, repo, &model.Store{OwnerID: 1, Name: "other"})

	require.NoError(t, repo.AddMember(ctx, &model.StoreMember{StoreID: shared.ID, SysUserID: 5, Status: model.MemberStatusAccepted}))
	require.NoError(t, repo.AddMember(ctx, &model.StoreMember{StoreID: pending.ID, SysUserID: 5}))

	stores, err := repo.ListForUser(ctx, 5)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, own.ID, stores[0].ID)
	assert.Equal(t, shared.ID, stores[1].ID)
}

func TestStoreRepo_ListConfigured(t *testing.T) {
	repo := NewStoreRepository(setupTestDB(t))
	ctx := context.Background()

	ok := seedStore(t, repo, &model.Store{OwnerID: 1, URL: "https://a.test", ConsumerKey: "k", ConsumerSecret: "s"})
	seedStore(t, repo, &model.Store{OwnerID: 1, URL: "https://b.test", ConsumerKey: "k"})
	seedStore(t, repo, &model.Store{OwnerID: 1, URL: "https://c.test", ConsumerKey: "k", ConsumerSecret: "s", Status: model.StoreStatusInactive})

	stores, err := repo.ListConfigured(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, ok.ID, stores[0].ID)
}

func TestStoreRepo_ConnectionState(t *testing.T) {
	repo := NewStoreRepository(setupTestDB(t))
	ctx := context.Background()
	s := seedStore(t, repo, &model.Store{OwnerID: 1})

	checked := time.Date(2026, 10, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.MarkDisconnected(ctx, s.ID, woo.ConnectionError{
		Code: "http_401", Message: "Unauthorized", StatusCode: 401, CheckedAt: checked,
	}))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsConnected)
	cerr := got.LastConnectionError()
	require.NotNil(t, cerr)
	assert.Equal(t, "http_401", cerr.Code)
	assert.Equal(t, 401, cerr.StatusCode)

	require.NoError(t, repo.MarkConnected(ctx, s.ID, checked.Add(time.Minute)))
	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsConnected)
	require.NotNil(t, got.LastConnectedAt)
	assert.True(t, got.LastConnectedAt.Equal(checked.Add(time.Minute)))
	assert.Nil(t, got.LastConnectionError())
}
