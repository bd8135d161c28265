package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
	"github.com/yeisme/docvault/pkg/middleware"
)

// RegisterValidateRoutes 注册结构校验与修复路由.
func RegisterValidateRoutes(g *gin.RouterGroup) {
	g.GET("/validate", middleware.RequireUser(), handle.ValidateDocuments)
	g.PUT("/correct/:documentID/type/:code/attach/:param", middleware.RequireUser(), handle.CorrectDocument)
}
