package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/log"
)

// BypassHeader 请求携带该头时跳过响应缓存.
const BypassHeader = "X-Cache-Bypass"

// cachedResponse 序列化存储结构.
type cachedResponse struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	StoredAt    int64  `json:"t"` // unix nano, 用于 Age
}

// ResponseCache 缓存与请求方无关的 GET 响应（健康检查等），cache 为 nil 或 ttl<=0 时不生效.
// 只缓存 200 与 503，键为 路由+路径 的 xxhash.
func ResponseCache(c *appcache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil || ttl <= 0 || ctx.Request.Method != http.MethodGet || ctx.GetHeader(BypassHeader) != "" {
			ctx.Next()

			return
		}

		key := responseKey(ctx)

		if entry, err := appcache.Get[cachedResponse](ctx.Request.Context(), c, key); err == nil {
			age := time.Since(time.Unix(0, entry.StoredAt)).Seconds()
			ctx.Header("Age", fmt.Sprintf("%.0f", age))
			ctx.Header("X-Cache", "HIT")
			ctx.Data(entry.Status, entry.ContentType, entry.Body)
			ctx.Abort()

			return
		}

		w := &captureWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = w
		ctx.Header("X-Cache", "MISS")
		ctx.Next()

		status := w.Status()
		if status != http.StatusOK && status != http.StatusServiceUnavailable {
			return
		}

		entry := cachedResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.buf.Bytes(),
			StoredAt:    time.Now().UnixNano(),
		}

		if err := appcache.Set(ctx.Request.Context(), c, key, entry, ttl); err != nil {
			l := log.Logger()
			l.Debug().Err(err).Str("key", key).Msg("response cache store failed")
		}
	}
}

func responseKey(c *gin.Context) string {
	var b strings.Builder

	b.WriteString(c.FullPath())
	b.WriteByte('|')
	b.WriteString(c.Request.URL.Path)

	return fmt.Sprintf("rc:%x", xxhash.Sum64String(b.String()))
}

// captureWriter 在写出的同时保留响应体.
type captureWriter struct {
	gin.ResponseWriter

	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)

	return w.ResponseWriter.Write(b)
}
