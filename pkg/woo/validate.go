package woo

import (
	"fmt"
	"reflect"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// argError 参数校验失败，不发起网络请求
type argError struct {
	code    string
	message string
}

func (e *argError) Error() string { return e.message }

// requireID 数字 ID 必须为正数
func requireID(name string, id int64) *argError {
	if err := validation.Validate(id, validation.Required, validation.Min(int64(1))); err != nil {
		return &argError{code: CodeInvalidArgument, message: fmt.Sprintf("Invalid %s: must be a positive integer", name)}
	}
	return nil
}

// requireKey 字符串标识不能为空
func requireKey(name, value string) *argError {
	if err := validation.Validate(strings.TrimSpace(value), validation.Required); err != nil {
		return &argError{code: CodeInvalidArgument, message: fmt.Sprintf("Invalid %s: must not be empty", name)}
	}
	return nil
}

// requireField 创建时的最小必填字段
func requireField(p Params, field string) *argError {
	if field == "" {
		return nil
	}
	v, ok := p[field]
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	if !ok || validation.Validate(v, validation.Required) != nil {
		return &argError{code: CodeMissingRequiredField, message: fmt.Sprintf("Missing required field: %s", field)}
	}
	return nil
}

// requireBatch 批量请求至少包含 create / update / delete 之一且非空
func requireBatch(p Params) *argError {
	for _, key := range []string{"create", "update", "delete"} {
		if nonEmptyList(p[key]) {
			return nil
		}
	}
	return &argError{code: CodeInvalidBatchPayload, message: "Batch payload must contain at least one of create, update or delete"}
}

func nonEmptyList(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	return rv.Len() > 0
}
