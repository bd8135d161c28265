package kv_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
)

func TestMemoryKVNotFound(t *testing.T) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing")
	assert.True(t, kv.IsNotFound(err))

	ok, err := store.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryKVTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := kv.NewMemoryKVWithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "lock:doc:1", []byte("alice"), 2*time.Second))
	require.NoError(t, store.Set(ctx, "forever", []byte("x"), 0))

	got, err := store.Get(ctx, "lock:doc:1")
	require.NoError(t, err)
	assert.Equal(t, "alice", string(got))

	now = now.Add(3 * time.Second)

	_, err = store.Get(ctx, "lock:doc:1")
	assert.True(t, kv.IsNotFound(err))

	got, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestMemoryKVExpiredKeyDropped(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := kv.NewMemoryKVWithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "revision:indices:1", []byte("[3]"), time.Minute))
	require.NoError(t, store.Set(ctx, "revision:indices:2", []byte("[4]"), time.Hour))

	now = now.Add(2 * time.Minute)

	ok, err := store.Exists(ctx, "revision:indices:1")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := store.Keys(ctx, "revision:indices:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"revision:indices:2"}, keys)

	require.NoError(t, store.Set(ctx, "revision:indices:1", []byte("[3,5]"), time.Minute))

	got, err := store.Get(ctx, "revision:indices:1")
	require.NoError(t, err)
	assert.Equal(t, "[3,5]", string(got))
}

func TestMemoryKVKeysGlob(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKVWithClock(time.Now)

	for _, k := range []string{"revision:list:1", "revision:list:2", "lock:1"} {
		require.NoError(t, store.Set(ctx, k, []byte("v"), 0))
	}

	keys, err := store.Keys(ctx, "revision:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"revision:list:1", "revision:list:2"}, keys)

	all, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryKVReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKVWithClock(time.Now)

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestGroupcacheKVDeleteIsVisible(t *testing.T) {
	ctx := context.Background()
	cfg := &configs.GroupcacheKVConfig{Name: "test-groupcache-delete", CacheBytes: 1 << 20}

	store, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, cfg)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "revision:indices:7", []byte("[1,2]"), time.Minute))

	got, err := store.Get(ctx, "revision:indices:7")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(got))

	require.NoError(t, store.Delete(ctx, "revision:indices:7"))

	_, err = store.Get(ctx, "revision:indices:7")
	assert.True(t, kv.IsNotFound(err))
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	_ = store.Close()
}

func BenchmarkGroupcacheKV(b *testing.B) {
	cfg := &configs.GroupcacheKVConfig{Name: "bench-groupcache", CacheBytes: 32 * 1024 * 1024}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, cfg)
	if err != nil {
		b.Fatalf("create groupcache kv: %v", err)
	}

	benchKV(b, "groupcache", store)
	_ = store.Close()
}

// benchKV 模拟锁心跳：Set 带 TTL，随后 Get 与 Delete.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()

	for _, ttl := range []time.Duration{0, 150 * time.Second} {
		b.Run(fmt.Sprintf("%s/ttl=%s", name, ttl), func(b *testing.B) {
			b.ReportAllocs()

			for i := 0; b.Loop(); i++ {
				key := fmt.Sprintf("lock-doc-%d", i)
				if err := store.Set(ctx, key, []byte("alice@example.com"), ttl); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	}
}

func TestRegisteredKVTypesSorted(t *testing.T) {
	types := kv.GetRegisteredKVTypes()

	assert.Contains(t, types, kv.KVTypeMemory)
	assert.Contains(t, types, kv.KVTypeGroupcache)
	assert.IsIncreasing(t, types)
}

func TestNewKVClientUnknownType(t *testing.T) {
	_, err := kv.NewKVClient(context.Background(), &configs.KVConfig{Type: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported KV type "etcd"`)
}
