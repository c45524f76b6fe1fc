package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWTAuth()}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "username": GetUsername(c)})
	})
	r.GET("/me", chain...)
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==================== JWT ====================

func TestJWTAuth(t *testing.T) {
	r := setupAuthRouter()

	token, err := GenerateAccessToken(42, "alice")
	require.NoError(t, err)

	w := doGet(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":42,"username":"alice"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "not-a-token").Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/me", JWTAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := GenerateAccessToken(7, "erin")
	require.NoError(t, err)
	doGet(r, token)
	doGet(r, "")

	entries := logs.All()
	require.Len(t, entries, 2)

	ok := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(7), ok["user_id"])
	assert.Equal(t, "erin", ok["username"])
	assert.Equal(t, "/me", ok["path"])

	denied := entries[1].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.NotContains(t, denied, "username")
	assert.Equal(t, int64(401), denied["status"])
}

func TestJWTAuth_WrongSecretOrExpired(t *testing.T) {
	r := setupAuthRouter()

	orig := jwtConfig
	t.Cleanup(func() { SetJWTConfig(orig) })

	SetJWTConfig(&JWTConfig{SecretKey: "another-secret-0123456789", AccessTokenTTL: time.Hour, Issuer: orig.Issuer})
	foreign, err := GenerateAccessToken(1, "mallory")
	require.NoError(t, err)

	SetJWTConfig(&JWTConfig{SecretKey: orig.SecretKey, AccessTokenTTL: -time.Minute, Issuer: orig.Issuer})
	expired, err := GenerateAccessToken(1, "bob")
	require.NoError(t, err)

	SetJWTConfig(orig)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, foreign).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, expired).Code)
}

// ==================== API 限流 ====================

func TestAPIRateLimit(t *testing.T) {
	limiter, _ := newTestLimiter()
	r := setupAuthRouter(APIRateLimit(limiter, "probe", 2, time.Minute))
	token, err := GenerateAccessToken(7, "carol")
	require.NoError(t, err)

	w := doGet(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, doGet(r, token).Code)

	w = doGet(r, token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// 不同用户独立计数
	other, _ := GenerateAccessToken(8, "dave")
	assert.Equal(t, http.StatusOK, doGet(r, other).Code)
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "请求过于频繁，请 5 秒后重试", formatRetryMessage(4500*time.Millisecond))
	assert.Equal(t, "请求过于频繁，请 2 分钟后重试", formatRetryMessage(2*time.Minute))
	assert.Equal(t, "请求过于频繁，请 1 分 30 秒后重试", formatRetryMessage(90*time.Second))
}

// ==================== 审计回调 ====================

type auditedRow struct {
	ID        int64 `gorm:"primaryKey"`
	Name      string
	CreatedBy int64
	UpdatedBy int64
}

func TestRegisterAuditCallbacks(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditedRow{}))
	require.NoError(t, RegisterAuditCallbacks(db))

	ctx := WithAuditUser(context.Background(), 11)
	row := auditedRow{Name: "a"}
	require.NoError(t, db.WithContext(ctx).Create(&row).Error)
	assert.Equal(t, int64(11), row.CreatedBy)
	assert.Equal(t, int64(11), row.UpdatedBy)

	ctx = WithAuditUser(context.Background(), 12)
	require.NoError(t, db.WithContext(ctx).Model(&auditedRow{}).Where("id = ?", row.ID).Updates(map[string]interface{}{"name": "b"}).Error)

	var got auditedRow
	require.NoError(t, db.First(&got, row.ID).Error)
	assert.Equal(t, "b", got.Name)
	assert.Equal(t, int64(11), got.CreatedBy)
	assert.Equal(t, int64(12), got.UpdatedBy)

	// 没有操作人时不填充
	anon := auditedRow{Name: "c"}
	require.NoError(t, db.Create(&anon).Error)
	assert.Equal(t, int64(0), anon.CreatedBy)
}
