package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/scheduler"
)

const schedulerKey = "scheduler"

// SchedulerMiddleware 把调度器交给管理接口.调度关闭时 sched 为 nil，接口返回 503.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sched != nil {
			c.Set(schedulerKey, sched)
		}

		c.Next()
	}
}

// GetScheduler 取出调度器，未注入时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	if v, ok := c.Get(schedulerKey); ok {
		if s, ok := v.(*scheduler.Scheduler); ok {
			return s
		}
	}

	return nil
}
