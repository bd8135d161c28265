// Package api 组装对外的 HTTP 接口：JSON API、文件下载与 Swagger 文档.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/router"
	"github.com/yeisme/docvault/pkg/internal/service"
)

// RegisterGroup 注册全部路由到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine, svc *service.Services) *gin.Engine {
	router.Register(e, svc)
	router.RegisterSwaggerRoute(e)

	return e
}
