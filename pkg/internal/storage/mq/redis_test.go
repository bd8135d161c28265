package mq

import (
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
)

// asRead 模拟 Redis 把字段值统一读回成字符串.
func asRead(id string, values map[string]any) redis.XMessage {
	read := make(map[string]any, len(values))

	for k, v := range values {
		switch v := v.(type) {
		case []byte:
			read[k] = string(v)
		default:
			read[k] = v
		}
	}

	return redis.XMessage{ID: id, Values: read}
}

func TestStreamEntryKeepsMetadata(t *testing.T) {
	msg := message.NewMessage("01JA2Z8Q4N6D9V7X3K5M1B0C2E", []byte(`{"header":{},"payload":{}}`))
	msg.Metadata.Set("topic", "dv.lock.overridden")
	msg.Metadata.Set("correlation_id", "4bf92f3577b34da6a3ce929d0e0e4736")

	values, err := streamValues(msg)
	require.NoError(t, err)

	got, err := toMessage(asRead("1700000000000-0", values))
	require.NoError(t, err)
	assert.Equal(t, msg.UUID, got.UUID)
	assert.Equal(t, string(msg.Payload), string(got.Payload))
	assert.Equal(t, "dv.lock.overridden", got.Metadata.Get("topic"))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got.Metadata.Get("correlation_id"))
	assert.Equal(t, "1700000000000-0", got.Metadata.Get("stream_id"))
}

func TestToMessageRejectsBadEntries(t *testing.T) {
	_, err := toMessage(redis.XMessage{ID: "1-0", Values: map[string]any{fieldPayload: "x"}})
	assert.Error(t, err)

	_, err = toMessage(redis.XMessage{ID: "1-1", Values: map[string]any{fieldUUID: "u", fieldMetadata: "{"}})
	assert.Error(t, err)

	msg, err := toMessage(redis.XMessage{ID: "1-2", Values: map[string]any{fieldUUID: "u"}})
	require.NoError(t, err)
	assert.Equal(t, "1-2", msg.Metadata.Get("stream_id"))
}

func TestConsumerName(t *testing.T) {
	cfg := &configs.MQConfig{Common: configs.MQCommonConfig{ClientID: "docvault"}}

	a, b := consumerName(cfg), consumerName(cfg)
	assert.True(t, strings.HasPrefix(a, "docvault-"))
	assert.NotEqual(t, a, b)

	cfg.Redis.Consumer = "node-1"
	assert.Equal(t, "node-1", consumerName(cfg))
}

func TestIsBusyGroup(t *testing.T) {
	assert.True(t, isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(errors.New("NOGROUP No such key")))
}
