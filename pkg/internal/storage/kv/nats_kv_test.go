package kv

import (
	"regexp"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
)

// 与 nats.go 校验 KV 键所用的规则一致
var natsKeyRe = regexp.MustCompile(`^[-/_=a-zA-Z0-9]+(\.[-/_=a-zA-Z0-9]+)*$`)

func TestNATSKeyEncoding(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"doc:7", "doc.7"},
		{"revision:indices:7", "revision.indices.7"},
		{"lock:doc:12", "lock.doc.12"},
		{"slug:release.notes", "slug.release=2Enotes"},
		{"slug:a b", "slug.a=20b"},
		{":lead", "=3Alead"},
		{"trail:", "trail=3A"},
		{"a::b", "a=3A=3Ab"},
		{"x=y", "x=3Dy"},
		{"用户:1", "=E7=94=A8=E6=88=B7.1"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := encodeNATSKey(tt.key)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, natsKeyRe, got)

			back, err := decodeNATSKey(got)
			require.NoError(t, err)
			assert.Equal(t, tt.key, back)
		})
	}
}

func TestDecodeNATSKeyRejectsBadEscape(t *testing.T) {
	for _, nk := range []string{"doc=4", "doc=ZZ", "="} {
		_, err := decodeNATSKey(nk)
		assert.Error(t, err, nk)
	}
}

func TestBucketConfig(t *testing.T) {
	kc := bucketConfig(&configs.NATSKVConfig{Bucket: "docvault-kv", MaxBytes: -1})
	assert.Equal(t, "docvault-kv", kc.Bucket)
	assert.Equal(t, uint8(1), kc.History)
	assert.Equal(t, nats.FileStorage, kc.Storage)
	assert.Equal(t, 1, kc.Replicas)
	assert.Zero(t, kc.TTL)

	kc = bucketConfig(&configs.NATSKVConfig{Bucket: "b", Storage: "memory", Replicas: 3})
	assert.Equal(t, nats.MemoryStorage, kc.Storage)
	assert.Equal(t, 3, kc.Replicas)
}

func TestSealOpen(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	raw, err := seal([]byte("alice"), 1500*time.Millisecond, now)
	require.NoError(t, err)

	val, live, err := open(raw, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "alice", string(val))

	_, live, err = open(raw, now.Add(1500*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, live)

	plain, err := seal([]byte("forever"), 0, now)
	require.NoError(t, err)
	assert.Equal(t, "forever", string(plain))

	val, live, err = open(plain, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "forever", string(val))

	_, _, err = open([]byte("DVTTL2:{broken"), now)
	assert.Error(t, err)
}
