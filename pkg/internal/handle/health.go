package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
)

const (
	healthTimeout = 2 * time.Second
	healthKey     = "health:kv"

	statusOK        = "ok"
	statusDisabled  = "disabled"
	statusUnhealthy = "unhealthy"
)

var errNotInitialized = errors.New("not initialized")

// checkFunc 返回 statusOK 或 statusDisabled；出错即 unhealthy.
type checkFunc func(ctx context.Context, mgr *storage.Manager, svc *service.Services) (string, error)

// healthChecks 组件名到检查函数，顺序即汇总结果里的顺序.
var healthChecks = []struct {
	name  string
	check checkFunc
}{
	{"db", checkDB},
	{"kv", checkKV},
	{"fs", checkFS},
	{"s3", checkS3},
	{"mq", checkMQ},
}

// ComponentHealth 单个组件的检查结果.
type ComponentHealth struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func runCheck(ctx context.Context, name string, check checkFunc, mgr *storage.Manager, svc *service.Services) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	start := time.Now()
	h := ComponentHealth{Component: name}

	if mgr == nil {
		h.Status, h.Error = statusUnhealthy, "storage "+errNotInitialized.Error()
		return h
	}

	status, err := check(ctx, mgr, svc)

	h.LatencyMS = time.Since(start).Milliseconds()
	h.Status = status

	if err != nil {
		h.Status, h.Error = statusUnhealthy, err.Error()
	}

	return h
}

func healthCode(hs ...ComponentHealth) int {
	for _, h := range hs {
		if h.Status == statusUnhealthy {
			return http.StatusServiceUnavailable
		}
	}

	return http.StatusOK
}

// HealthComponent 单个组件的健康检查处理器，name 须是 db、kv、fs、s3、mq 之一.
func HealthComponent(name string) gin.HandlerFunc {
	var check checkFunc

	for _, hc := range healthChecks {
		if hc.name == name {
			check = hc.check
		}
	}

	if check == nil {
		panic("unknown health component " + name)
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		h := runCheck(ctx, name, check, ctxPkg.GetManager(ctx), services(c))

		c.JSON(healthCode(h), h)
	}
}

// HealthAll 并发检查全部组件，任一 unhealthy 返回 503.
//
//	@Summary	全部组件健康状态
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/v1/health [get]
func HealthAll(c *gin.Context) {
	ctx := c.Request.Context()
	mgr, svc := ctxPkg.GetManager(ctx), services(c)

	results := make([]ComponentHealth, len(healthChecks))

	var g errgroup.Group

	for i, hc := range healthChecks {
		g.Go(func() error {
			results[i] = runCheck(ctx, hc.name, hc.check, mgr, svc)
			return nil
		})
	}

	_ = g.Wait()

	code := healthCode(results...)

	status := statusOK
	if code != http.StatusOK {
		status = statusUnhealthy
	}

	c.JSON(code, gin.H{"status": status, "components": results})
}

func checkDB(ctx context.Context, mgr *storage.Manager, _ *service.Services) (string, error) {
	dbc := mgr.GetDBClient()
	if dbc == nil || dbc.DB == nil {
		return "", errNotInitialized
	}

	sqlDB, err := dbc.DB.DB()
	if err != nil {
		return "", err
	}

	return statusOK, sqlDB.PingContext(ctx)
}

// checkKV 读一个不存在的键，只要后端可达即可.
func checkKV(ctx context.Context, mgr *storage.Manager, _ *service.Services) (string, error) {
	kvc := mgr.GetKVClient()
	if kvc == nil || kvc.KVStore == nil {
		return "", errNotInitialized
	}

	if _, err := kvc.Exists(ctx, healthKey); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
		return "", err
	}

	return statusOK, nil
}

// checkFS 文档与媒体根目录可访问，尚未创建也算正常.
func checkFS(ctx context.Context, mgr *storage.Manager, svc *service.Services) (string, error) {
	fs := mgr.GetFS()
	if fs == nil || svc == nil {
		return "", errNotInitialized
	}

	roots := svc.Documents.Roots()
	for _, dir := range []string{roots.Document, roots.Media} {
		if dir == "" {
			continue
		}

		if _, err := fs.Stat(ctx, dir); err != nil && !errors.Is(err, vfs.ErrNotExist) {
			return "", err
		}
	}

	return statusOK, nil
}

// checkS3 未使用 s3 后端时为 disabled.
func checkS3(ctx context.Context, mgr *storage.Manager, _ *service.Services) (string, error) {
	s3c := mgr.GetS3Client()
	if s3c == nil {
		return statusDisabled, nil
	}

	return statusOK, s3c.HealthCheck(ctx)
}

// checkMQ 事件关闭时为 disabled.
func checkMQ(_ context.Context, mgr *storage.Manager, _ *service.Services) (string, error) {
	if mgr.GetMQClient() == nil {
		return statusDisabled, nil
	}

	return statusOK, nil
}
