package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 控制台 API 限流中间件 ====================

// APIRateLimit 按用户限制控制台 API 的调用频率
// 与店铺 API 的限流互相独立，key 使用 "user:{id}:{scope}"
//
// 使用示例:
//
//	stores.POST("/:id/test-connection",
//	    middleware.APIRateLimit(limiter, "probe", 5, time.Minute),
//	    storeCtl.TestConnection,
//	)
func APIRateLimit(limiter *WindowLimiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("user:%d:%s", GetUserID(c), scope)

		result := limiter.Check(key, limit, window)
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    "rate_limit_exceeded",
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retryAfter,
					"scope":       scope,
				},
			})
			c.Abort()
			return
		}

		if result.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		c.Next()
	}
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 60 {
		return fmt.Sprintf("请求过于频繁，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60
	if remainingSeconds == 0 {
		return fmt.Sprintf("请求过于频繁，请 %d 分钟后重试", minutes)
	}
	return fmt.Sprintf("请求过于频繁，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
