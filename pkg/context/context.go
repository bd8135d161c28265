// Package context 在请求上下文中携带存储管理器与业务服务，供处理器与定时任务取用.
package context

import (
	"context"

	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
)

type (
	managerKey  struct{}
	servicesKey struct{}
)

func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// GetManager 未注入时返回 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(managerKey{}).(*storage.Manager)
	return mgr
}

func WithServices(ctx context.Context, svc *service.Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, svc)
}

// GetServices 未注入时返回 nil.
func GetServices(ctx context.Context) *service.Services {
	svc, _ := ctx.Value(servicesKey{}).(*service.Services)
	return svc
}
