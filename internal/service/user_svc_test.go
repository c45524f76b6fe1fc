package service

import (
	"context"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"woo_console_v1_202610/internal/middleware"
	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/internal/repository"
)

func setupUserSvc(t *testing.T) (*UserService, repository.UserRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	require.NoError(t, db.AutoMigrate(&model.SysUser{}))
	repo := repository.NewUserRepository(db)
	return NewUserService(repo), repo
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc, _ := setupUserSvc(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Username: "alice", Password: "correct-horse", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.True(t, user.IsActive)

	resp, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := middleware.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc, _ := setupUserSvc(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Username: "al", Password: "short", Email: "nope"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "username")
	assert.Contains(t, verrs, "password")
	assert.Contains(t, verrs, "email")

	_, err = svc.Register(ctx, RegisterRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Username: "alice", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestUserService_LoginFailures(t *testing.T) {
	svc, repo := setupUserSvc(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Username: "ghost", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := svc.Register(ctx, RegisterRequest{Username: "bob", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Username: "bob", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, repo.SetActive(ctx, user.ID, false))
	_, err = svc.Login(ctx, LoginRequest{Username: "bob", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, _ := setupUserSvc(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Username: "carol", Password: "correct-horse"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{OldPassword: "bad-horse", NewPassword: "battery-staple"})
	assert.ErrorIs(t, err, ErrInvalidOldPassword)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "battery-staple"}))

	_, err = svc.Login(ctx, LoginRequest{Username: "carol", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginRequest{Username: "carol", Password: "battery-staple"})
	assert.NoError(t, err)

	err = svc.ChangePassword(ctx, 999, ChangePasswordRequest{OldPassword: "x", NewPassword: "battery-staple"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Deactivate(t *testing.T) {
	svc, _ := setupUserSvc(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Username: "dave", Password: "correct-horse"})
	require.NoError(t, err)

	var verrs validation.Errors
	assert.ErrorAs(t, svc.Deactivate(ctx, user.ID, DeactivateRequest{}), &verrs)
	assert.ErrorIs(t, svc.Deactivate(ctx, user.ID, DeactivateRequest{Password: "wrong-horse"}), ErrInvalidCredentials)

	require.NoError(t, svc.Deactivate(ctx, user.ID, DeactivateRequest{Password: "correct-horse"}))

	_, err = svc.Login(ctx, LoginRequest{Username: "dave", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUserDisabled)
	assert.ErrorIs(t, svc.Deactivate(ctx, user.ID, DeactivateRequest{Password: "correct-horse"}), ErrUserDisabled)
	assert.ErrorIs(t, svc.Deactivate(ctx, 999, DeactivateRequest{Password: "x"}), ErrUserNotFound)
}
