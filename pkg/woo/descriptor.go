package woo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Params 请求参数；GET/DELETE 编码为查询串，其余方法编码为 JSON 请求体
type Params map[string]any

// Descriptor 一次调用的描述
type Descriptor struct {
	Endpoint string // 相对路径，不带前导 "/"
	Method   string
	Params   Params

	// SkipPermissionCheck 为 true 时跳过写/删权限校验 (默认校验)
	SkipPermissionCheck bool
	// Group 覆盖限流分组，默认取 Endpoint 第一段
	Group string
}

// ResourceGroup 限流分区键
func (d Descriptor) ResourceGroup() string {
	if d.Group != "" {
		return d.Group
	}
	ep := strings.TrimLeft(d.Endpoint, "/")
	if i := strings.IndexAny(ep, "/?"); i >= 0 {
		ep = ep[:i]
	}
	return ep
}

func (d Descriptor) normalizedMethod() string {
	m := strings.ToUpper(strings.TrimSpace(d.Method))
	if m == "" {
		return http.MethodGet
	}
	return m
}

func (d Descriptor) normalizedEndpoint() string {
	return strings.TrimLeft(d.Endpoint, "/")
}

// usesQuery GET/DELETE 的参数放在查询串
func usesQuery(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

// ==================== 参数编码 ====================

// EncodeQuery 数组编码为 key[]=v，嵌套 map 编码为 key[sub]=v
func EncodeQuery(p Params) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		appendQueryValue(values, k, p[k])
	}
	return values
}

func appendQueryValue(values url.Values, key string, v any) {
	switch val := v.(type) {
	case nil:
		return
	case string:
		values.Add(key, val)
	case bool:
		values.Add(key, strconv.FormatBool(val))
	case int:
		values.Add(key, strconv.Itoa(val))
	case int64:
		values.Add(key, strconv.FormatInt(val, 10))
	case float64:
		values.Add(key, strconv.FormatFloat(val, 'f', -1, 64))
	case json.Number:
		values.Add(key, val.String())
	case map[string]any:
		sub := make([]string, 0, len(val))
		for k := range val {
			sub = append(sub, k)
		}
		sort.Strings(sub)
		for _, k := range sub {
			appendQueryValue(values, key+"["+k+"]", val[k])
		}
	case Params:
		appendQueryValue(values, key, map[string]any(val))
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				appendQueryValue(values, key+"[]", rv.Index(i).Interface())
			}
			return
		}
		values.Add(key, fmt.Sprint(v))
	}
}

// encodeBody POST/PUT/PATCH 请求体
func encodeBody(p Params) ([]byte, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}
