package kv

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// memEntry 以指针存入 sync.Map，CompareAndDelete 比较的是指针.
type memEntry struct {
	data []byte
}

// MemoryKV 基于 sync.Map 的内存 KV 实现，值以 TTL 包装存储，读取时惰性过期.
type MemoryKV struct {
	data sync.Map
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(ctx context.Context, config any) (KVStore, error) {
	return &MemoryKV{now: time.Now}, nil
}

// NewMemoryKVWithClock 创建使用指定时钟的内存 KV，便于测试过期行为.
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return &MemoryKV{now: now}
}

// load 读取未过期的值，过期值顺带删除.
func (m *MemoryKV) load(key string) ([]byte, bool, error) {
	value, exists := m.data.Load(key)
	if !exists {
		return nil, false, nil
	}

	entry, ok := value.(*memEntry)
	if !ok {
		return nil, false, nil
	}

	val, live, err := open(entry.data, m.now())
	if err != nil {
		return nil, false, err
	}

	if !live {
		m.data.CompareAndDelete(key, entry)

		return nil, false, nil
	}

	return val, true, nil
}

// Get 获取键的值.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, ok, err := m.load(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, notFound(key)
	}

	return bytes.Clone(val), nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := seal(bytes.Clone(value), ttl, m.now())
	if err != nil {
		return err
	}

	m.data.Store(key, &memEntry{data: data})

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.load(key)
	return ok, err
}

// Keys 获取匹配模式的键.
func (m *MemoryKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)

	m.data.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if !ok || !matchKey(pattern, k) {
			return true
		}

		if _, live, err := m.load(k); err == nil && live {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
