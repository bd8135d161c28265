package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// 不原生支持 TTL 的后端（内存、NATS KV、groupcache）把值连同截止时间一起存储，读取时惰性判断过期.
// 不带 TTL 的值原样存储，没有前缀.
var envelopeMagic = []byte("DVTTL2:")

type envelope struct {
	V []byte `json:"v"`
	// 截止时间，unix 毫秒
	E int64 `json:"e"`
}

// seal ttl<=0 时原样返回.
func seal(value []byte, ttl time.Duration, now time.Time) ([]byte, error) {
	if ttl <= 0 {
		return value, nil
	}

	b, err := sonic.Marshal(envelope{V: value, E: now.Add(ttl).UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("seal value: %w", err)
	}

	return append(bytes.Clone(envelopeMagic), b...), nil
}

// open 返回值与是否仍然有效.
func open(raw []byte, now time.Time) ([]byte, bool, error) {
	body, sealed := bytes.CutPrefix(raw, envelopeMagic)
	if !sealed {
		return raw, true, nil
	}

	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, false, fmt.Errorf("open value: %w", err)
	}

	if now.UnixMilli() >= env.E {
		return nil, false, nil
	}

	return env.V, true, nil
}
