package net

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// transportCache 按连接超时缓存 Transport，同配置的客户端复用连接池
var transportCache sync.Map

// SharedTransport 获取/复用 Transport
// TLS 证书校验始终开启
func SharedTransport(connectTimeout time.Duration) *http.Transport {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	if val, ok := transportCache.Load(connectTimeout); ok {
		return val.(*http.Transport)
	}

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: connectTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	// LoadOrStore 防止并发重复创建
	actual, _ := transportCache.LoadOrStore(connectTimeout, tr)
	return actual.(*http.Transport)
}
