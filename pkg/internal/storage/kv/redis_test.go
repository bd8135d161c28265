//go:build !no_redis

package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKeyPrefix(t *testing.T) {
	r := newRedisKV(nil, "docvault:", 0)
	assert.Equal(t, "docvault:lock:doc:1", r.key("lock:doc:1"))
	assert.Equal(t, int64(200), r.scanCount)

	r = newRedisKV(nil, "", 50)
	assert.Equal(t, "doc:1", r.key("doc:1"))
	assert.Equal(t, int64(50), r.scanCount)
}
