package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
)

// RegisterHealthCheckRoute /health 汇总全部组件，/health/<组件> 单独检查.
func RegisterHealthCheckRoute(g *gin.RouterGroup, mw ...gin.HandlerFunc) {
	health := g.Group("/health", mw...)

	health.GET("", handle.HealthAll)

	for _, name := range []string{"db", "kv", "fs", "s3", "mq"} {
		health.GET("/"+name, handle.HealthComponent(name))
	}
}
