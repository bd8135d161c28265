package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/middleware"
	schedpkg "github.com/yeisme/docvault/pkg/scheduler"
)

// SchedulerJobs 返回所有定时任务.
//
//	@Summary	定时任务列表
//	@Tags		调度器
//	@Produce	json
//	@Router		/api/v1/admin/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched, ok := scheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.Jobs()})
}

// SchedulerJob 返回单个任务，例如 validate-sweep.
//
//	@Summary	定时任务详情
//	@Tags		调度器
//	@Produce	json
//	@Param		name	path	string	true	"任务名"
//	@Router		/api/v1/admin/scheduler/jobs/{name} [get]
func SchedulerJob(c *gin.Context) {
	sched, ok := scheduler(c)
	if !ok {
		return
	}

	info, err := sched.Job(c.Param("name"))
	if err != nil {
		jobFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// SchedulerRunJob 立即运行一次任务.
//
//	@Summary	立即运行任务
//	@Tags		调度器
//	@Produce	json
//	@Param		name	path	string	true	"任务名"
//	@Router		/api/v1/admin/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched, ok := scheduler(c)
	if !ok {
		return
	}

	name := c.Param("name")
	if err := sched.RunNow(name); err != nil {
		jobFailed(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}

// SchedulerStopJobs 停止所有任务.
func SchedulerStopJobs(c *gin.Context) {
	sched, ok := scheduler(c)
	if !ok {
		return
	}

	if err := sched.StopJobs(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "jobs stopped"})
}

// SchedulerRemoveJob 按名称删除任务.
func SchedulerRemoveJob(c *gin.Context) {
	sched, ok := scheduler(c)
	if !ok {
		return
	}

	if err := sched.Remove(c.Param("name")); err != nil {
		jobFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}

// SchedulerQueueWaiting 返回队列中等待的任务数.
func SchedulerQueueWaiting(c *gin.Context) {
	sched, ok := scheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
}

func jobFailed(c *gin.Context, err error) {
	if errors.Is(err, schedpkg.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// scheduler 定时任务关闭时返回 503.
func scheduler(c *gin.Context) (*schedpkg.Scheduler, bool) {
	s := middleware.GetScheduler(c)
	if s == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler disabled"})

		return nil, false
	}

	return s, true
}
