package kv

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/docvault/pkg/configs"
)

// GroupcacheKV 基于 Groupcache 的 KV 实现.
//
// 本节点写入的数据保存在 data 中并优先读取，只有本地未命中时才经由 groupcache 向对等节点取值.
// groupcache 不支持失效，因此所有值都带 TTL 包装，对等节点返回的过期副本会在读取时被丢弃.
type GroupcacheKV struct {
	cache *groupcache.Group    // Groupcache 缓存组
	peers *groupcache.HTTPPool // 对等节点池
	data  map[string][]byte    // 本地存储数据（TTL 包装后的原始字节）
	mu    sync.RWMutex
}

// groupcacheGetter 实现 groupcache.Getter 接口，向对等节点暴露本地数据.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(ctx context.Context, key string, dest groupcache.Sink) error {
	g.kv.mu.RLock()
	value, exists := g.kv.data[key]
	g.kv.mu.RUnlock()

	if !exists {
		return notFound(key)
	}

	if err := dest.SetBytes(value); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

// groupcache 的组名全局唯一，重复创建会 panic.
var (
	groupsMu sync.Mutex
	groups   = map[string]*GroupcacheKV{}
)

// NewGroupcacheKV 创建 Groupcache KV 实例，同名组复用已有实例.
func NewGroupcacheKV(ctx context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	groupsMu.Lock()
	defer groupsMu.Unlock()

	if existing, ok := groups[gcConfig.Name]; ok {
		return existing, nil
	}

	kv := &GroupcacheKV{
		data: make(map[string][]byte),
	}

	kv.cache = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})

	if len(gcConfig.Peers) > 0 {
		kv.peers = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		kv.peers.Set(gcConfig.Peers...)
	}

	groups[gcConfig.Name] = kv

	return kv, nil
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	raw, local := g.data[key]
	g.mu.RUnlock()

	if !local {
		if g.peers == nil {
			return nil, notFound(key)
		}

		if err := g.cache.Get(ctx, key, groupcache.AllocatingByteSliceSink(&raw)); err != nil {
			return nil, notFound(key)
		}
	}

	val, live, err := open(raw, time.Now())
	if err != nil {
		return nil, err
	}

	if !live {
		if local {
			_ = g.Delete(ctx, key)
		}

		return nil, notFound(key)
	}

	return bytes.Clone(val), nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := seal(bytes.Clone(value), ttl, time.Now())
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.data[key] = data
	g.mu.Unlock()

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.data, key)

	return nil
}

// Exists 检查键是否存在.
func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.Get(ctx, key)
	if IsNotFound(err) {
		return false, nil
	}

	return err == nil, err
}

// Keys 获取本地所有键.
func (g *GroupcacheKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := time.Now()
	keys := make([]string, 0, len(g.data))

	for key, raw := range g.data {
		if !matchKey(pattern, key) {
			continue
		}

		if _, live, err := open(raw, now); err == nil && live {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	// Groupcache 没有显式的关闭方法
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
