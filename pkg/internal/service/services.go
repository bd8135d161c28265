package service

import (
	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/binder"
	"github.com/yeisme/docvault/pkg/internal/lock"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/serve"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/internal/validator"
	"github.com/yeisme/docvault/pkg/queue"
)

// Services 组装后的业务服务，由 app 初始化一次并注入请求上下文.
type Services struct {
	Cache     *cache.Cache
	Repo      *repository.UncachedRepository
	Cached    *repository.CachedRepository
	Index     *revision.Index
	Binder    *binder.Binder
	Auth      authz.Authorizer
	Events    *queue.Emitter
	Documents *DocumentService
	Files     *serve.Server
	Locks     *lock.Manager
	Validator *validator.Validator
}

// New 基于存储管理器组装业务服务.
//
// 读取路径（下载、修订列表、锁）使用 CachedRepository；写入与结构校验直接访问数据库.
func New(mgr *storage.Manager, cfg *configs.AppConfig) *Services {
	repo := repository.NewUncached(mgr.GetDBClient().GetDB())
	c := cache.NewCache(mgr.GetKVClient())
	ttl := cfg.Document.CacheTTL

	cached := repository.NewCached(repo, c, ttl)
	index := revision.NewIndex(cached, c, ttl)
	b := binder.New(cached, index)
	az := authz.NewRoleAuthorizer(cfg.Auth)

	var events *queue.Emitter
	if mq := mgr.GetMQClient(); mq != nil {
		events = queue.NewEmitter(mq.Publisher(), cfg.Events)
	}

	docs := NewDocumentService(Deps{
		Repo:        repo,
		Reader:      cached,
		Index:       index,
		FS:          mgr.GetFS(),
		Auth:        az,
		Events:      events,
		Invalidates: []Invalidator{cached},
	}, cfg.Document)

	return &Services{
		Cache:     c,
		Repo:      repo,
		Cached:    cached,
		Index:     index,
		Binder:    b,
		Auth:      az,
		Events:    events,
		Documents: docs,
		Files:     serve.New(cached, b, index, mgr.GetFS(), az, serve.OptionsFromConfig(cfg.Document)),
		Locks:     lock.NewManager(lock.NewKVStore(mgr.GetKVClient()), cached, az, events, cfg.Lock),
		Validator: validator.New(repo, mgr.GetFS(), docs.Roots(), az, events, index, cached),
	}
}
