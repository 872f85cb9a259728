package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/certvault/internal/http/response"
	"github.com/certvault/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

// Limiter 固定窗口限流策略
// 返回是否放行与建议等待秒数
type Limiter interface {
	Allow(ctx context.Context, key string, windowSeconds, maxRequests int) (allowed bool, retryAfter int, err error)
}

// memoryWindow 单个 key 的窗口计数
type memoryWindow struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter 进程内固定窗口限流器
// 时钟可注入，便于测试窗口翻转
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryLimiter 创建进程内限流器
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// SetClock 注入时钟
func (l *MemoryLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now != nil {
		l.now = now
	}
}

// Allow 判定是否放行
func (l *MemoryLimiter) Allow(_ context.Context, key string, windowSeconds, maxRequests int) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(time.Duration(windowSeconds) * time.Second)}
		l.windows[key] = w
	}
	w.count++
	if w.count > maxRequests {
		retryAfter := int(w.resetAt.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter, nil
	}

	// 顺带清理过期窗口，避免 map 无限增长
	if len(l.windows) > 4096 {
		for k, win := range l.windows {
			if !now.Before(win.resetAt) {
				delete(l.windows, k)
			}
		}
	}
	return true, 0, nil
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter 基于 Redis 的固定窗口限流器，多实例部署时共享计数
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Allow 判定是否放行
func (l *RedisLimiter) Allow(ctx context.Context, key string, windowSeconds, maxRequests int) (bool, int, error) {
	if l == nil || l.client == nil {
		return true, 0, nil
	}
	result, err := rateLimitScript.Run(ctx, l.client, []string{key}, windowSeconds).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result")
	}
	count, ok := toInt64(values[0])
	if !ok {
		return false, 0, fmt.Errorf("unexpected rate limit count")
	}
	ttlSeconds, _ := toInt64(values[1])
	if count > int64(maxRequests) {
		retryAfter := int(ttlSeconds)
		if retryAfter < 1 {
			retryAfter = windowSeconds
		}
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}

// RateLimitMiddleware 固定窗口限流中间件
// 限流器故障时放行并告警，避免依赖故障放大为全站不可用
func RateLimitMiddleware(limiter Limiter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key, rule.WindowSeconds, rule.MaxRequests)
		if err != nil {
			logger.Warnw("rate_limit_unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Writer.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			msg := strings.TrimSpace(rule.Message)
			if msg == "" {
				msg = fmt.Sprintf("请求过于频繁，请 %d 秒后重试", retryAfter)
			}
			response.TooManyRequests(c, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
