package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/log"
)

// GinLoggerMiddleware 每个请求一条日志.5xx 记 error，4xx 与慢请求记 warn，
// 带 trace_id、路由模板与已识别的请求方.
func GinLoggerMiddleware(conf configs.LogConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		l := log.Ctx(c.Request.Context())

		ev := l.WithLevel(requestLevel(status, latency, conf.SlowRequest)).
			Int("status", status).
			Dur("latency", latency).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size())

		if route := c.FullPath(); route != "" {
			ev = ev.Str("route", route)
		}

		if q := c.Request.URL.RawQuery; q != "" {
			ev = ev.Str("query", q)
		}

		if u := GetUser(c); !u.Anonymous() {
			ev = ev.Str("user", u.ID)
		}

		if len(c.Errors) > 0 {
			ev = ev.Str("error", c.Errors.String())
		}

		ev.Msg("HTTP request")
	}
}

func requestLevel(status int, latency, slow time.Duration) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	case slow > 0 && latency >= slow:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
