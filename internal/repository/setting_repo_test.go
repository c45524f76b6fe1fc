package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woo_console_v1_202610/internal/model"
	"woo_console_v1_202610/pkg/woo"
)

func TestSettingRepo_LoadDefaults(t *testing.T) {
	repo := NewSettingRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, model.SettingRateLimitRequests, "100"))
	require.NoError(t, repo.Set(ctx, model.SettingRateLimitRequests, "120"))
	require.NoError(t, repo.Set(ctx, model.SettingAppName, "Acme Console"))
	require.NoError(t, repo.Set(ctx, model.SettingMaxRetries, "0"))
	require.NoError(t, repo.Set(ctx, model.SettingTimeoutSeconds, "abc"))

	d, err := repo.LoadDefaults(ctx, woo.DefaultDefaults())
	require.NoError(t, err)

	assert.Equal(t, 120, d.RateLimitRequests)
	assert.Equal(t, "Acme Console", d.AppName)
	assert.Equal(t, 0, d.MaxRetries)
	assert.Equal(t, woo.DefaultTimeoutSeconds, d.TimeoutSeconds, "无法解析的值保持默认")
	assert.Equal(t, "v3", d.APIVersion)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
