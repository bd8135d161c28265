package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/handle"
)

// RegisterSchedulerRoutes 注册调度器相关路由.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	g.GET("/scheduler/jobs", handle.SchedulerJobs)
	g.GET("/scheduler/jobs/:name", handle.SchedulerJob)
	g.POST("/scheduler/jobs/:name/run", handle.SchedulerRunJob)
	g.DELETE("/scheduler/jobs/:name", handle.SchedulerRemoveJob)

	g.POST("/scheduler/stop", handle.SchedulerStopJobs)
	g.GET("/scheduler/queue/waiting", handle.SchedulerQueueWaiting)
}
