package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
)

// StorageMiddleware 把存储与业务服务注入请求上下文.
func StorageMiddleware(manager *storage.Manager, svc *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithStorageManager(c.Request.Context(), manager)
		ctx = context.WithServices(ctx, svc)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
