// Package lock 实现基于心跳的文档编辑锁.
//
// 锁只是建议性的：保存路径不检查锁，锁仅用于界面提示与接管操作.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/docvault/pkg/internal/storage/kv"
)

// NSLock 锁在 KV 中的键前缀.
const NSLock = "lock"

// Store 锁原语，键为文档 id，值为持有人，超过 ttl 自动失效.
type Store interface {
	Set(ctx context.Context, documentID uint, user string, ttl time.Duration) error
	Get(ctx context.Context, documentID uint) (string, bool, error)
	Delete(ctx context.Context, documentID uint) error
}

type record struct {
	User  string    `json:"user"`
	Since time.Time `json:"since"`
}

// KVStore 基于 kv.KVStore 的锁原语.
type KVStore struct {
	kv kv.KVStore
}

// NewKVStore 创建 KVStore.
func NewKVStore(store kv.KVStore) *KVStore {
	return &KVStore{kv: store}
}

func key(documentID uint) string {
	return NSLock + ":" + strconv.FormatUint(uint64(documentID), 10)
}

// Set 写入或续期锁.
func (s *KVStore) Set(ctx context.Context, documentID uint, user string, ttl time.Duration) error {
	data, err := sonic.Marshal(record{User: user, Since: time.Now().UTC()})
	if err != nil {
		return err
	}

	if err := s.kv.Set(ctx, key(documentID), data, ttl); err != nil {
		return fmt.Errorf("set lock of %d: %w", documentID, err)
	}

	return nil
}

// Get 返回当前持有人.
func (s *KVStore) Get(ctx context.Context, documentID uint) (string, bool, error) {
	data, err := s.kv.Get(ctx, key(documentID))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("get lock of %d: %w", documentID, err)
	}

	var rec record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return "", false, fmt.Errorf("decode lock of %d: %w", documentID, err)
	}

	return rec.User, rec.User != "", nil
}

// Delete 释放锁.
func (s *KVStore) Delete(ctx context.Context, documentID uint) error {
	return s.kv.Delete(ctx, key(documentID))
}
