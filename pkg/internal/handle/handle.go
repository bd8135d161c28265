// Package handle 提供 HTTP 请求处理器.业务服务通过请求上下文注入.
package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/log"
)

func services(c *gin.Context) *service.Services {
	return ctxPkg.GetServices(c.Request.Context())
}

func currentUser(c *gin.Context) authz.User {
	return authz.UserFrom(c.Request.Context())
}

// requireServices 服务未注入时返回 503.
func requireServices(c *gin.Context) (*service.Services, bool) {
	svc := services(c)
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "services not initialized"})

		return nil, false
	}

	return svc, true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid " + name, Code: "bad_request"})

		return 0, false
	}

	return uint(v), true
}

func badRequest(c *gin.Context, err error) {
	l := log.Logger()
	l.Warn().Err(err).Str("path", c.FullPath()).Msg("invalid request")
	c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error(), Code: "bad_request"})
}

// fail 按错误类型写出 JSON 错误.
func fail(c *gin.Context, err error) {
	status := types.StatusOf(err)

	l := log.Logger()
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Str("path", c.FullPath()).Msg("request rejected")
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}

	c.JSON(status, types.ErrorResponse{Error: msg, Code: errorCode(err, status)})
}

func errorCode(err error, status int) string {
	var inconsistent *types.InconsistentParametersError
	if errors.As(err, &inconsistent) {
		return "inconsistent_parameters"
	}

	switch status {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusLocked:
		return "locked"
	case http.StatusUnprocessableEntity:
		return "structure_problem"
	default:
		return "internal"
	}
}
