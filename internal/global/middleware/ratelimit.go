package middleware

import (
	"strconv"
	"sync"
	"time"

	"meetup-backend/config"
	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	maxLimiters = 10000
	limiterIdle = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按用户（未登录时按 IP）限流
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	capacity int
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		capacity: maxLimiters,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= rl.capacity {
			rl.evict(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evict 清理长时间未访问的 limiter，都不空闲时淘汰最久未访问的一个，调用方持有锁
func (rl *RateLimiter) evict(now time.Time) {
	var (
		oldestKey  string
		oldestSeen time.Time
	)
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdle {
			delete(rl.limiters, key)
			continue
		}
		if oldestKey == "" || entry.lastSeen.Before(oldestSeen) {
			oldestKey, oldestSeen = key, entry.lastSeen
		}
	}
	if len(rl.limiters) >= rl.capacity && oldestKey != "" {
		delete(rl.limiters, oldestKey)
	}
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if payload, ok := jwt.GetUserPayload(c); ok {
			key = "user:" + strconv.FormatUint(uint64(payload.UserID), 10)
		}

		if !rl.getLimiter(key).Allow() {
			response.Fail(c, response.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// RateLimit 使用全局配置创建限流中间件，每分钟次数为 0 时不限流
func RateLimit() gin.HandlerFunc {
	cfg := config.Get().RateLimit
	if cfg.PerMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return NewRateLimiter(cfg.PerMinute, cfg.Burst).Handler()
}
