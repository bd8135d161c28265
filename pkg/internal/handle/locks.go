package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/lock"
	"github.com/yeisme/docvault/pkg/internal/types"
)

// lockResponse 锁状态及心跳间隔.
type lockResponse struct {
	lock.Status
	TTLSeconds int `json:"ttl_seconds"`
}

// GetLock 查询编辑锁.
//
//	@Summary	查询编辑锁
//	@Tags		编辑锁
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	lock.Status
//	@Router		/api/v1/documents/{id}/lock [get]
func GetLock(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := svc.Documents.Get(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)

		return
	}

	st, err := svc.Locks.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, lockResponse{Status: st, TTLSeconds: int(svc.Locks.TTL().Seconds())})
}

// AcquireLock 获取或续期编辑锁.
//
//	@Summary	获取编辑锁（心跳）
//	@Tags		编辑锁
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	lock.Status
//	@Failure	423	{object}	types.ErrorResponse
//	@Router		/api/v1/documents/{id}/lock [put]
func AcquireLock(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	st, err := svc.Locks.Acquire(c.Request.Context(), id, currentUser(c))
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, lockResponse{Status: st, TTLSeconds: int(svc.Locks.TTL().Seconds())})
}

// ReleaseLock 释放编辑锁.
//
//	@Summary	释放编辑锁
//	@Tags		编辑锁
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	types.SuccessResponse
//	@Router		/api/v1/documents/{id}/lock [delete]
func ReleaseLock(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := svc.Locks.Release(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// OverrideLock 接管他人持有的编辑锁.
//
//	@Summary	接管编辑锁
//	@Tags		编辑锁
//	@Produce	json
//	@Param		id	path		int	true	"文档 ID"
//	@Success	200	{object}	lock.Status
//	@Failure	403	{object}	types.ErrorResponse
//	@Failure	409	{object}	types.ErrorResponse
//	@Router		/api/v1/documents/{id}/lock/override [post]
func OverrideLock(c *gin.Context) {
	svc, ok := requireServices(c)
	if !ok {
		return
	}

	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	st, err := svc.Locks.Override(c.Request.Context(), id, currentUser(c))
	if err != nil {
		fail(c, err)

		return
	}

	c.JSON(http.StatusOK, lockResponse{Status: st, TTLSeconds: int(svc.Locks.TTL().Seconds())})
}
