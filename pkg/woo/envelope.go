package woo

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ==================== 错误码 ====================

const (
	CodeNotConfigured         = "not_configured"
	CodePermissionDenied      = "permission_denied"
	CodeRateLimitExceeded     = "rate_limit_exceeded"
	CodeInvalidArgument       = "invalid_argument"
	CodeMissingRequiredField  = "missing_required_field"
	CodeInvalidBatchPayload   = "invalid_batch_payload"
	CodeTransportError        = "transport_error"
	CodeJSONError             = "json_error"
	CodeUnsupportedReportType = "unsupported_report_type"
)

// HTTPErrorCode 平台未提供 code 时的兜底错误码
func HTTPErrorCode(status int) string {
	return "http_" + strconv.Itoa(status)
}

// ==================== Envelope ====================

// Envelope 所有公开操作的统一返回值
// Success 为 true 当且仅当 StatusCode 存在且 < 400，并且响应体是 JSON 或合法为空
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Headers    Headers         `json:"headers,omitempty"`
	StatusCode *int            `json:"status_code"`

	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	RawBody   string          `json:"raw_body,omitempty"`
	ErrorData json.RawMessage `json:"error_data,omitempty"`

	Diagnostics Diagnostics `json:"diagnostics"`
}

// Diagnostics 单次调用的诊断信息，随 Envelope 返回，不在客户端上保留
type Diagnostics struct {
	RequestID string        `json:"request_id"`
	StoreID   int64         `json:"store_id"`
	Endpoint  string        `json:"endpoint"`
	Method    string        `json:"method"`
	Group     string        `json:"group"`
	Attempts  int           `json:"attempts"`
	Waited    time.Duration `json:"waited"`
	Duration  time.Duration `json:"duration"`
	LastError string        `json:"last_error,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Total      *int `json:"total"`
	TotalPages *int `json:"total_pages"`
}

// Pagination 从响应头读取分页
func (e *Envelope) Pagination() Pagination {
	return Pagination{Total: e.Headers.Total(), TotalPages: e.Headers.TotalPages()}
}

// Status 状态码，请求未完成时返回 0
func (e *Envelope) Status() int {
	if e.StatusCode == nil {
		return 0
	}
	return *e.StatusCode
}

// Decode 把 Data 反序列化到 v
func (e *Envelope) Decode(v any) error {
	if !e.Success {
		return errors.New(e.Error)
	}
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Value 把 Data 解码为通用结构 (map / slice / 标量)
func (e *Envelope) Value() (any, error) {
	if len(e.Data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// failure 构造失败信封 (不含上报，上报统一在 pipeline.report)
func failure(code, message string) *Envelope {
	return &Envelope{Success: false, ErrorCode: code, Error: message}
}

func intPtr(i int) *int {
	return &i
}
