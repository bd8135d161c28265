// Package router 管理路由配置，用于设置HTTP服务的路由.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/handle"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/middleware"
)

// healthCacheTTL 健康检查结果缓存时间.
const healthCacheTTL = 5 * time.Second

// Register 绑定全部路由：
//
//	/api/v1/...                   JSON 接口（gzip）
//	/documents/:slug              文件下载，压缩由下载服务自行协商
//	/documents/:slug/revisions/:rev
func Register(e *gin.Engine, svc *service.Services) {
	RegisterDownloadRoutes(e)

	api := e.Group("/api/v1", gzip.Gzip(gzip.DefaultCompression))

	if svc != nil {
		RegisterHealthCheckRoute(api, middleware.ResponseCache(svc.Cache, healthCacheTTL))
	} else {
		RegisterHealthCheckRoute(api)
	}

	RegisterDocumentRoutes(api)
	RegisterValidateRoutes(api)

	admin := api.Group("/admin", middleware.RequireMinRole(authz.RoleAdmin))
	RegisterSchedulerRoutes(admin)

	e.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// RegisterDownloadRoutes 注册文件下载路由.
func RegisterDownloadRoutes(e *gin.Engine) {
	e.GET("/documents/:slug", handle.DownloadDocument)
	e.HEAD("/documents/:slug", handle.DownloadDocument)
	e.GET("/documents/:slug/revisions/:rev", handle.DownloadRevision)
	e.HEAD("/documents/:slug/revisions/:rev", handle.DownloadRevision)
}
