package controller

import (
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"woo_console_v1_202610/internal/service"
	"woo_console_v1_202610/pkg/woo"
)

// envelopeStatus Envelope -> HTTP 状态码
func envelopeStatus(env *woo.Envelope) int {
	if env.Success {
		return http.StatusOK
	}
	switch env.ErrorCode {
	case woo.CodePermissionDenied:
		return http.StatusForbidden
	case woo.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case woo.CodeInvalidArgument, woo.CodeMissingRequiredField, woo.CodeInvalidBatchPayload, woo.CodeUnsupportedReportType:
		return http.StatusBadRequest
	case woo.CodeNotConfigured:
		return http.StatusConflict
	}
	// 远端 4xx 原样透出，其余 (5xx / 传输错误 / 非 JSON) 视为网关错误
	if s := env.Status(); s >= 400 && s < 500 {
		return s
	}
	return http.StatusBadGateway
}

// writeEnvelope 统一输出店铺 API 调用结果
func writeEnvelope(c *gin.Context, env *woo.Envelope) {
	body := gin.H{
		"success":    env.Success,
		"request_id": env.Diagnostics.RequestID,
	}
	if env.StatusCode != nil {
		body["status_code"] = *env.StatusCode
	}

	if env.Success {
		body["data"] = env.Data
		page := env.Pagination()
		if page.Total != nil {
			c.Header("X-Total", strconv.Itoa(*page.Total))
		}
		if page.TotalPages != nil {
			c.Header("X-Total-Pages", strconv.Itoa(*page.TotalPages))
		}
		if page.Total != nil || page.TotalPages != nil {
			body["pagination"] = page
		}
	} else {
		body["error_code"] = env.ErrorCode
		body["error"] = env.Error
		if len(env.ErrorData) > 0 {
			body["error_data"] = env.ErrorData
		}
	}

	c.JSON(envelopeStatus(env), body)
}

// writeError 构造阶段的 Go 错误
func writeError(c *gin.Context, err error) {
	var verrs validation.Errors
	switch {
	case errors.Is(err, woo.ErrStoreNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": err.Error()})
	case errors.Is(err, woo.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"code": "access_denied", "message": err.Error()})
	case errors.Is(err, service.ErrMemberExists):
		c.JSON(http.StatusConflict, gin.H{"code": "conflict", "message": err.Error()})
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "message": err.Error(), "fields": verrs})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "服务器内部错误"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "message": message})
}

// pathID 解析路径参数；非法值返回 0，交给下游校验
func pathID(c *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// queryParams 查询串 -> Params，多值保留为数组
func queryParams(c *gin.Context) woo.Params {
	values := c.Request.URL.Query()
	if len(values) == 0 {
		return nil
	}
	p := make(woo.Params, len(values))
	for k, v := range values {
		if len(v) == 1 {
			p[k] = v[0]
		} else {
			p[k] = v
		}
	}
	return p
}

// bodyParams 请求体 -> Params，空请求体返回空 Params
func bodyParams(c *gin.Context) (woo.Params, bool) {
	p := woo.Params{}
	if c.Request.ContentLength == 0 {
		return p, true
	}
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "请求体必须是 JSON 对象: "+err.Error())
		return nil, false
	}
	return p, true
}
