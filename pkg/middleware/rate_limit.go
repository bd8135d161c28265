package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/metrics"
)

const (
	scopeAPI      = "api"
	scopeDownload = "download"
)

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// limiterSet 按键维护限流器，闲置超过 ttl 的在下次访问时回收.
type limiterSet struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newLimiterSet(rps float64, burst int, ttl time.Duration, now func() time.Time) *limiterSet {
	if ttl <= 0 {
		ttl = configs.DefaultRateLimitIdleTTL
	}

	return &limiterSet{
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      now,
		visitors: make(map[string]*visitor),
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if now.Sub(s.lastSweep) >= s.ttl {
		for k, v := range s.visitors {
			if now.Sub(v.seen) >= s.ttl {
				delete(s.visitors, k)
			}
		}

		s.lastSweep = now
	}

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.visitors[key] = v
	}

	v.seen = now

	return v.limiter.AllowN(now, 1)
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.visitors)
}

// retryAfter 令牌补回一个所需的秒数，至少 1.
func (s *limiterSet) retryAfter() string {
	if s.rps <= 0 {
		return "60"
	}

	return strconv.Itoa(int(math.Max(1, math.Ceil(1/float64(s.rps)))))
}

type rateLimiter struct {
	key      string
	api      *limiterSet
	download *limiterSet
}

// RateLimitMiddleware 请求限流.需放在 AuthMiddleware 之后，user 维度才能取到请求方.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return newRateLimiter(cfg, time.Now).handle
}

func newRateLimiter(cfg configs.RateLimitConfig, now func() time.Time) *rateLimiter {
	drps, dburst := cfg.Download()

	return &rateLimiter{
		key:      strings.ToLower(strings.TrimSpace(cfg.Key)),
		api:      newLimiterSet(cfg.RPS, cfg.Burst, cfg.IdleTTL, now),
		download: newLimiterSet(drps, dburst, cfg.IdleTTL, now),
	}
}

func (r *rateLimiter) handle(c *gin.Context) {
	scope, set := scopeAPI, r.api
	if isDownload(c.Request.URL.Path) {
		scope, set = scopeDownload, r.download
	}

	if set.allow(r.keyOf(c)) {
		c.Next()

		return
	}

	metrics.RateLimited.WithLabelValues(scope).Inc()

	c.Header("Retry-After", set.retryAfter())
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
}

func (r *rateLimiter) keyOf(c *gin.Context) string {
	switch {
	case r.key == "global" || r.key == "":
		return "global"
	case r.key == "user":
		if u := GetUser(c); !u.Anonymous() {
			return "user:" + u.ID
		}
	case strings.HasPrefix(r.key, "header:"):
		if v := c.GetHeader(strings.TrimPrefix(r.key, "header:")); v != "" {
			return "header:" + v
		}
	}

	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}

	return "unknown"
}

// isDownload 文件下载挂在 /documents/ 下，JSON 接口在 /api/ 下.
func isDownload(path string) bool {
	return strings.HasPrefix(path, "/documents/")
}
