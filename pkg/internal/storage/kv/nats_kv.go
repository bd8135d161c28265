package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/docvault/pkg/configs"
)

// NATSKV 基于 JetStream KV bucket.
//
// NATS 的键只允许 [-/_=.a-zA-Z0-9]，业务键里的 ':' 写成 '.'，其余字符写成 =XX，
// 原本的 '.' 与 '=' 也转义，Keys 返回前解码，调用方看到的始终是原始键.
type NATSKV struct {
	kv   nats.KeyValue
	conn *nats.Conn
	now  func() time.Time
}

// NewNATSKV 连接 NATS 并打开 bucket，不存在则创建.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid NATS config")
	}

	opts := []nats.Option{nats.Name("docvault-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(bucketConfig(cfg))
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open KV bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{kv: kv, conn: nc, now: time.Now}, nil
}

// bucketConfig 单键 TTL 由值包装处理，bucket 本身不设过期，只保留最新版本.
func bucketConfig(cfg *configs.NATSKVConfig) *nats.KeyValueConfig {
	kc := &nats.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "docvault cache, revision indices and edit locks",
		History:     1,
		MaxBytes:    cfg.MaxBytes,
		Storage:     nats.FileStorage,
		Replicas:    max(cfg.Replicas, 1),
	}

	if cfg.Storage == "memory" {
		kc.Storage = nats.MemoryStorage
	}

	return kc
}

// Get 获取键的值.
func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, ok, err := n.load(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, notFound(key)
	}

	return val, nil
}

// load 过期的条目顺带删除.
func (n *NATSKV) load(key string) ([]byte, bool, error) {
	nk := encodeNATSKey(key)

	entry, err := n.kv.Get(nk)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	val, live, err := open(entry.Value(), n.now())
	if err != nil {
		return nil, false, err
	}

	if !live {
		// 只删除读到的那个版本，期间被重新写入则保留
		_ = n.kv.Delete(nk, nats.LastRevision(entry.Revision()))

		return nil, false, nil
	}

	return val, true, nil
}

// Set 设置键的值.
func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := seal(value, ttl, n.now())
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(encodeNATSKey(key), data); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	return nil
}

// Delete 删除键.
func (n *NATSKV) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(encodeNATSKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

// Exists 检查键是否存在.
func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := n.load(key)
	return ok, err
}

// Keys 列出 bucket 中的键，解码后按 glob 过滤.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	lister, err := n.kv.ListKeys(nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	result := make([]string, 0)

	for nk := range lister.Keys() {
		key, err := decodeNATSKey(nk)
		if err != nil || !matchKey(pattern, key) {
			continue
		}

		if _, ok, err := n.load(key); err == nil && ok {
			result = append(result, key)
		}
	}

	return result, nil
}

// Close 关闭 NATS 连接.
func (n *NATSKV) Close() error {
	return n.conn.Drain()
}

// encodeNATSKey ':' 作为分隔符写成 '.'；位于开头结尾或连续出现时 '.' 会产生空 token，改为转义.
func encodeNATSKey(key string) string {
	var b strings.Builder

	for i := 0; i < len(key); i++ {
		c := key[i]

		switch {
		case c == ':' && i > 0 && i < len(key)-1 && key[i-1] != ':' && key[i+1] != ':':
			b.WriteByte('.')
		case isNATSKeyByte(c):
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}

	return b.String()
}

func decodeNATSKey(nk string) (string, error) {
	var b strings.Builder

	for i := 0; i < len(nk); i++ {
		switch c := nk[i]; c {
		case '.':
			b.WriteByte(':')
		case '=':
			if i+2 >= len(nk) {
				return "", fmt.Errorf("truncated escape in key %q", nk)
			}

			v, err := strconv.ParseUint(nk[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("bad escape in key %q: %w", nk, err)
			}

			b.WriteByte(byte(v))
			i += 2
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

// isNATSKeyByte 原样保留的字符.'.' 与 '=' 留给编码本身.
func isNATSKeyByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '/' || c == '_':
		return true
	default:
		return false
	}
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
