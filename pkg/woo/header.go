package woo

import (
	"bytes"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	HeaderHTTPVersion   = "http_version"
	HeaderStatusCode    = "status_code"
	HeaderStatusMessage = "status_message"

	HeaderTotal      = "x-wp-total"
	HeaderTotalPages = "x-wp-totalpages"
)

var statusLineRe = regexp.MustCompile(`^HTTP/(\d+(?:\.\d+)?)\s+(\d{3})(?:\s+(.*))?$`)

// Headers 规范化后的响应头，key 全部小写
type Headers map[string]string

// Get 大小写不敏感
func (h Headers) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// StatusCode 状态行中的状态码，缺失返回 0
func (h Headers) StatusCode() int {
	n, _ := strconv.Atoi(h.Get(HeaderStatusCode))
	return n
}

// Total 条目总数，缺失或非数字返回 nil
func (h Headers) Total() *int {
	return h.intValue(HeaderTotal)
}

// TotalPages 总页数，缺失或非数字返回 nil
func (h Headers) TotalPages() *int {
	return h.intValue(HeaderTotalPages)
}

func (h Headers) intValue(key string) *int {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// ==================== 原始头块解析 ====================

// ParseHeaderBlock 解析可能叠加了多个状态段的原始头块 (100 Continue / 重定向)
// 第一遍: 从末尾向前找最后一个状态行；第二遍: 只取该状态行到下一个空行之间的内容
func ParseHeaderBlock(raw []byte) Headers {
	lines := splitHeaderLines(raw)

	start := lastStatusLine(lines)
	if start < 0 {
		// 没有状态行时按普通 key: value 处理
		return foldHeaderLines(lines, 0)
	}
	return foldHeaderLines(lines, start)
}

func splitHeaderLines(raw []byte) []string {
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	return strings.Split(string(raw), "\n")
}

func lastStatusLine(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if statusLineRe.MatchString(strings.TrimSpace(lines[i])) {
			return i
		}
	}
	return -1
}

func foldHeaderLines(lines []string, start int) Headers {
	h := Headers{}
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if i == start {
				continue
			}
			break
		}

		if m := statusLineRe.FindStringSubmatch(line); m != nil {
			h[HeaderHTTPVersion] = m[1]
			h[HeaderStatusCode] = m[2]
			h[HeaderStatusMessage] = strings.TrimSpace(m[3])
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if prev, exists := h[key]; exists {
			h[key] = prev + ", " + value
		} else {
			h[key] = value
		}
	}
	return h
}

// ==================== 头块构造 ====================

// writeHeaderBlock 把一个 http.Response 的状态行与头部写成原始头块
func writeHeaderBlock(buf *bytes.Buffer, resp *http.Response) {
	if resp == nil {
		return
	}
	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	status := resp.Status
	if status == "" {
		status = strconv.Itoa(resp.StatusCode) + " " + http.StatusText(resp.StatusCode)
	}
	buf.WriteString(proto)
	buf.WriteByte(' ')
	buf.WriteString(status)
	buf.WriteString("\r\n")

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			buf.WriteString(k)
			buf.WriteString(": ")
			buf.WriteString(v)
			buf.WriteString("\r\n")
		}
	}
	buf.WriteString("\r\n")
}
