package middleware

import (
	"net/http"
	"sync"

	"hobby_forum/pkg/response"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// IPRateLimiter 每个IP一个令牌桶，IP 表用 LRU 限制大小
type IPRateLimiter struct {
	ips *lru.Cache[string, *rate.Limiter]
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

// NewIPRateLimiter 创建一个新的IP限流器
// r: 每秒允许的请求数 (QPS)
// b: 桶的大小 (Burst)
// size: 最多跟踪的IP数
func NewIPRateLimiter(r rate.Limit, b int, size int) (*IPRateLimiter, error) {
	ips, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &IPRateLimiter{ips: ips, r: r, b: b}, nil
}

// GetLimiter 获取指定IP的限流器
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, ok := i.ips.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips.Add(ip, limiter)
	}
	return limiter
}

// RateLimitMiddleware 限流中间件
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			response.Abort(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
