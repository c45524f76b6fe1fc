package middleware

import (
	"context"
	"reflect"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ==================== 审计上下文 ====================

type auditContextKey struct{}

// WithAuditUser 注入操作人到 context
func WithAuditUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, auditContextKey{}, userID)
}

// AuditUserID 从 context 获取操作人，未设置时为 0
func AuditUserID(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(auditContextKey{}).(int64); ok {
		return id
	}
	return 0
}

// AuditContext 把 JWT 中的用户写入 request context，供 GORM 回调使用
// 必须放在 JWTAuth 之后
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := GetUserID(c); userID > 0 {
			c.Request = c.Request.WithContext(WithAuditUser(c.Request.Context(), userID))
		}
		c.Next()
	}
}

// ==================== GORM 回调 ====================

// RegisterAuditCallbacks 创建时填充 CreatedBy/UpdatedBy，更新时填充 UpdatedBy
func RegisterAuditCallbacks(db *gorm.DB) error {
	err := db.Callback().Create().Before("gorm:create").Register("audit:create", func(tx *gorm.DB) {
		if userID := AuditUserID(tx.Statement.Context); userID > 0 {
			setAuditField(tx, "CreatedBy", userID)
			setAuditField(tx, "UpdatedBy", userID)
		}
	})
	if err != nil {
		return err
	}

	return db.Callback().Update().Before("gorm:update").Register("audit:update", func(tx *gorm.DB) {
		userID := AuditUserID(tx.Statement.Context)
		if userID == 0 {
			return
		}
		// map 更新需要显式写入列
		if fields, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			if tx.Statement.Schema != nil && tx.Statement.Schema.LookUpField("UpdatedBy") != nil {
				fields["updated_by"] = userID
			}
			return
		}
		setAuditField(tx, "UpdatedBy", userID)
	})
}

// setAuditField 只填充零值字段
func setAuditField(tx *gorm.DB, fieldName string, value int64) {
	if tx.Statement.Schema == nil {
		return
	}
	field := tx.Statement.Schema.LookUpField(fieldName)
	if field == nil {
		return
	}

	ctx := tx.Statement.Context
	switch tx.Statement.ReflectValue.Kind() {
	case reflect.Struct:
		if _, isZero := field.ValueOf(ctx, tx.Statement.ReflectValue); isZero {
			_ = field.Set(ctx, tx.Statement.ReflectValue, value)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < tx.Statement.ReflectValue.Len(); i++ {
			rv := tx.Statement.ReflectValue.Index(i)
			if _, isZero := field.ValueOf(ctx, rv); isZero {
				_ = field.Set(ctx, rv, value)
			}
		}
	}
}
