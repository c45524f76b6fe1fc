package middleware

import (
	"sync"
	"time"

	"woo_console_v1_202610/pkg/woo"
)

// ==================== WindowLimiter 固定窗口限流器 ====================

// WindowLimiter 按 key 的固定窗口计数器
// 每次放行消耗一个名额；窗口到期后计数清零，过期的 key 定期清理
type WindowLimiter struct {
	windows sync.Map // key -> *windowEntry
	now     func() time.Time

	sweepEvery time.Duration
	sweepMu    sync.Mutex
	lastSweep  time.Time
}

// windowEntry 单个 key 的窗口状态
type windowEntry struct {
	mu     sync.Mutex
	start  time.Time
	window time.Duration
	count  int
	// dead 已从 map 中移除，持有旧指针的调用方需要重新获取
	dead bool
}

var _ woo.RateLimiter = (*WindowLimiter)(nil)

// NewWindowLimiter 创建限流器
func NewWindowLimiter() *WindowLimiter {
	return &WindowLimiter{now: time.Now, sweepEvery: time.Minute}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	Remaining  int           // 当前窗口剩余名额
	RetryAfter time.Duration // 被拒绝时距离窗口重置的时间
}

// Check 检查并消耗一个名额
// limit <= 0 表示不限流
func (l *WindowLimiter) Check(key string, limit int, window time.Duration) CheckResult {
	if limit <= 0 || window <= 0 {
		return CheckResult{Allowed: true, Remaining: -1}
	}

	now := l.now()
	l.maybeSweep(now)

	for {
		actual, _ := l.windows.LoadOrStore(key, &windowEntry{})
		entry := actual.(*windowEntry)

		entry.mu.Lock()
		if entry.dead {
			entry.mu.Unlock()
			continue
		}
		res := entry.take(now, limit, window)
		entry.mu.Unlock()
		return res
	}
}

func (e *windowEntry) take(now time.Time, limit int, window time.Duration) CheckResult {
	if e.start.IsZero() || now.Sub(e.start) >= window {
		e.start = now
		e.count = 0
	}
	e.window = window

	if e.count >= limit {
		return CheckResult{
			Allowed:    false,
			RetryAfter: window - now.Sub(e.start),
		}
	}

	e.count++
	return CheckResult{Allowed: true, Remaining: limit - e.count}
}

// Allow 实现 woo.RateLimiter
func (l *WindowLimiter) Allow(key string, limit int, window time.Duration) bool {
	return l.Check(key, limit, window).Allowed
}

// Reset 重置指定 key
func (l *WindowLimiter) Reset(key string) {
	if v, ok := l.windows.Load(key); ok {
		l.remove(key, v.(*windowEntry))
	}
}

// ==================== 过期清理 ====================

func (l *WindowLimiter) maybeSweep(now time.Time) {
	l.sweepMu.Lock()
	if now.Sub(l.lastSweep) < l.sweepEvery {
		l.sweepMu.Unlock()
		return
	}
	l.lastSweep = now
	l.sweepMu.Unlock()

	l.sweep(now)
}

// sweep 删除窗口已经结束的 key，返回删除数量
func (l *WindowLimiter) sweep(now time.Time) int {
	removed := 0
	l.windows.Range(func(k, v any) bool {
		entry := v.(*windowEntry)
		entry.mu.Lock()
		expired := !entry.start.IsZero() && now.Sub(entry.start) >= entry.window
		entry.mu.Unlock()
		if expired && l.removeIf(k, entry, now) {
			removed++
		}
		return true
	})
	return removed
}

// removeIf 加锁后再次确认过期，避免误删刚被重新占用的窗口
func (l *WindowLimiter) removeIf(key any, entry *windowEntry, now time.Time) bool {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.dead || now.Sub(entry.start) < entry.window {
		return false
	}
	entry.dead = true
	l.windows.CompareAndDelete(key, entry)
	return true
}

func (l *WindowLimiter) remove(key any, entry *windowEntry) {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.dead = true
	l.windows.CompareAndDelete(key, entry)
}
