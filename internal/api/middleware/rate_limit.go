package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/redis"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/response"
)

// localLimiterCap 进程内限流器上限，超出后清理长期未访问的条目
const localLimiterCap = 10000

// RateLimit 速率限制中间件
// limit: 窗口内允许的最大请求数
// window: 窗口时长
// 优先使用 Redis 固定窗口计数（多实例共享）；rdb 为 nil 或 Redis 出错时退回进程内令牌桶
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	local := newLocalLimiter(limit, window)

	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), c.FullPath())

		allowed := false
		if rdb != nil {
			ok, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err == nil {
				allowed = ok
			} else {
				logger.Warn("Redis 限流失败，使用进程内限流", zap.Error(err))
				allowed = local.allow(key)
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter 按 key 维护的令牌桶集合
type localLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	idle    time.Duration
	entries map[string]*limiterEntry
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &localLimiter{
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		idle:    window * 2,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	e, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= localLimiterCap {
			l.prune(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *localLimiter) prune(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.entries, k)
		}
	}
}
