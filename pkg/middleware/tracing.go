package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/docvault/pkg/tracing"
)

// TracingMiddleware 为每个请求开启 server span，沿用上游 traceparent.
// span 名取路由模板；路由里的文档 id、slug 与修订号记为属性.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("url.path", c.Request.URL.Path),
			attribute.String("client.address", c.ClientIP()),
			attribute.String("user_agent.original", c.Request.UserAgent()),
		}
		attrs = append(attrs, routeAttrs(c)...)

		ctx, span := tracing.StartSpan(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))

		if u := GetUser(c); !u.Anonymous() {
			span.SetAttributes(tracing.AttrUser.String(u.ID))
		}

		switch {
		case len(c.Errors) > 0:
			span.SetStatus(codes.Error, c.Errors.String())
		case status >= 500:
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
	}
}

func routeAttrs(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue

	if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil {
		attrs = append(attrs, tracing.AttrDocumentID.Int64(int64(id)))
	}

	if slug := c.Param("slug"); slug != "" {
		attrs = append(attrs, tracing.AttrSlug.String(slug))
	}

	if rev := c.Param("rev"); rev != "" {
		attrs = append(attrs, tracing.AttrRevision.String(rev))
	}

	return attrs
}
