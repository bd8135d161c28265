// Package cache 提供基于键值存储的泛型缓存实现，按 (namespace, id) 组织键.
//
// 修订索引、修订列表与文档读取缓存都通过该包访问 KV 存储.
// 值使用 sonic 序列化，支持 TTL.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore)
//
//	key := cache.Key("revision:indices", docID)
//	indices, err := cache.GetOrSet(ctx, c, key, func() (map[int]uint, error) {
//	    return loadIndices(ctx, docID)
//	}, time.Hour)
//
//	// 文档保存后失效
//	_ = c.Delete(ctx, key)
//
// 并发:
//
//	GetOrSet 对同一键的并发回源通过 singleflight 合并，其余操作的并发语义取决于底层 KV 存储.
//	写方在保存后同步失效缓存，读方在失效之后发起的读取一定能看到新值.
//	Delete 会推进键的代次并让正在进行的回源失效，失效前开始的回源不再写回缓存.
//
// 错误处理:
//   - 网络错误、连接错误等会通过error返回
//   - 序列化/反序列化错误会被包装并返回
//   - GetOrSet 中缓存未命中或缓存值损坏都会回源，不视为错误
package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/docvault/pkg/internal/storage/kv"
)

// DefaultTTL 未指定 TTL 时缓存项的默认有效期.
const DefaultTTL = time.Hour

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	group   singleflight.Group
	gens    sync.Map // key -> *atomic.Uint64
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{
		kvStore: kvStore,
	}
}

// Key 生成 namespace:id 形式的缓存键.
func Key(namespace string, id any) string {
	return fmt.Sprintf("%s:%v", namespace, id)
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

func (c *Cache) gen(key string) *atomic.Uint64 {
	g, _ := c.gens.LoadOrStore(key, new(atomic.Uint64))

	return g.(*atomic.Uint64)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.gen(key).Add(1)
		c.group.Forget(key)

		if err := c.kvStore.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", key, err)
		}
	}

	return nil
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 获取缓存值，未命中时调用 getter 回源并写回.同一键的并发回源只执行一次.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	var zero T

	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	gen := c.gen(key)

	v, err, _ := c.group.Do(key, func() (any, error) {
		started := gen.Load()

		value, err := getter()
		if err != nil {
			return nil, err
		}

		if gen.Load() != started {
			return value, nil
		}

		// 写缓存失败仍返回回源结果
		_ = Set(ctx, c, key, value, ttl)

		// 写回与 Delete 交错时撤销写回
		if gen.Load() != started {
			_ = c.kvStore.Delete(ctx, key)
		}

		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected cached type for key %s", key)
	}

	return value, nil
}

// Clear 删除匹配模式的所有键，空模式表示全部.
func (c *Cache) Clear(ctx context.Context, pattern string) error {
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.kvStore.Keys(ctx, pattern)
	if err != nil {
		return err
	}

	return c.Delete(ctx, keys...)
}
