// Package kv 提供用于键值存储的接口和实现，修订索引缓存与编辑锁都建立在其之上.
package kv

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"time"

	"github.com/yeisme/docvault/pkg/configs"
)

// ErrKeyNotFound 键不存在或已过期.
var ErrKeyNotFound = errors.New("kv: key not found")

type Client struct {
	KVStore
}

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值，键不存在时返回包装了 ErrKeyNotFound 的错误.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，ttl<=0 表示永不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除键，键不存在不视为错误.
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 获取匹配 glob 模式的键（用于调试与命令行）.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close 关闭存储连接.
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory     KVType = "memory"
	KVTypeRedis      KVType = "redis"
	KVTypeNATS       KVType = "nats"
	KVTypeGroupcache KVType = "groupcache"
)

// KVFactory 创建 KVStore，config 为对应实现的子配置指针，memory 为 nil.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

var kvFactories = map[KVType]KVFactory{}

// RegisterKVFactory 各实现在 init 中注册自己，重复注册以后者为准.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 已编译进来的类型，按名称排序.
func GetRegisteredKVTypes() []KVType {
	return slices.Sorted(maps.Keys(kvFactories))
}

// NewKVStore 按类型创建存储.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, ok := kvFactories[kvType]
	if !ok {
		return nil, fmt.Errorf("unsupported KV type %q (registered: %v)", kvType, GetRegisteredKVTypes())
	}

	return factory(ctx, config)
}

// NewKVClient 按配置创建 KV 客户端.
func NewKVClient(ctx context.Context, cfg *configs.KVConfig) (*Client, error) {
	typ := KVType(cfg.Type)

	store, err := NewKVStore(ctx, typ, subConfig(typ, cfg))
	if err != nil {
		return nil, fmt.Errorf("kv %s: %w", typ, err)
	}

	return &Client{KVStore: store}, nil
}

func subConfig(typ KVType, cfg *configs.KVConfig) any {
	switch typ {
	case KVTypeRedis:
		return &cfg.Redis
	case KVTypeNATS:
		return &cfg.NATS
	case KVTypeGroupcache:
		return &cfg.Groupcache
	default:
		return nil
	}
}

// IsNotFound 判断错误是否表示键不存在.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// matchKey 与 Redis KEYS 语义一致的 glob 匹配，空模式匹配全部.
func matchKey(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	ok, err := path.Match(pattern, key)

	return err == nil && ok
}
