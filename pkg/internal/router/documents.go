package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
	"github.com/yeisme/docvault/pkg/middleware"
)

// RegisterDocumentRoutes 注册文档、修订与编辑锁路由.
func RegisterDocumentRoutes(g *gin.RouterGroup) {
	docs := g.Group("/documents")
	{
		docs.GET("", handle.ListDocuments)
		docs.POST("", middleware.RequireUser(), handle.UploadDocument)

		single := docs.Group("/:id")
		{
			single.GET("", handle.GetDocument)
			single.GET("/revisions", handle.ListRevisions)

			// 以下操作要求已登录，具体权限由授权器判断
			write := single.Group("", middleware.RequireUser())
			write.PATCH("", handle.UpdateDocument)
			write.DELETE("", handle.PurgeDocument)
			write.PUT("/file", handle.ReplaceFile)
			write.PUT("/workflow", handle.SetWorkflow)
			write.POST("/trash", handle.TrashDocument)
			write.POST("/restore", handle.RestoreDocument)

			single.GET("/lock", handle.GetLock)
			write.PUT("/lock", handle.AcquireLock)
			write.DELETE("/lock", handle.ReleaseLock)
			write.POST("/lock/override", handle.OverrideLock)
		}
	}
}
