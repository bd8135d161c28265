package mq

import (
	"testing"
	"time"

	nc "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/docvault/pkg/configs"
)

func TestDurableNamePerTopic(t *testing.T) {
	assert.Equal(t, "docvault_dv_lock_overridden", durableName("docvault", "dv.lock.overridden"))
	assert.Equal(t, "docvault_dv_document__", durableName("docvault", "dv.document.>"))
	assert.NotEqual(t, durableName("docvault", "dv.document.saved"), durableName("docvault", "dv.document.served"))
	assert.Empty(t, durableName("", "dv.document.saved"))
}

func TestStreamConfig(t *testing.T) {
	sc := streamConfig(configs.MQNATSConfig{
		StreamMaxAge:   72,
		StreamStorage:  "memory",
		StreamReplicas: 0,
		TrackMsgID:     true,
	})

	assert.Equal(t, configs.DefaultStreamName, sc.Name)
	assert.Equal(t, []string{"dv.>"}, sc.Subjects)
	assert.Equal(t, 72*time.Hour, sc.MaxAge)
	assert.Equal(t, nc.MemoryStorage, sc.Storage)
	assert.Equal(t, 1, sc.Replicas)
	assert.Equal(t, 2*time.Minute, sc.Duplicates)
}

func TestJetStreamConfig(t *testing.T) {
	off := jetStreamConfig(&configs.MQConfig{})
	assert.True(t, off.Disabled)

	on := jetStreamConfig(&configs.MQConfig{NATS: configs.MQNATSConfig{
		JetStreamEnabled:      true,
		DurablePrefix:         "docvault",
		ConsumerAckWait:       30,
		ConsumerMaxDeliver:    5,
		ConsumerMaxAckPending: 100,
	}})

	assert.False(t, on.Disabled)
	assert.False(t, on.ShouldAutoProvision())
	assert.Len(t, on.SubscribeOptions, 5)
	assert.Equal(t, "docvault_dv_document_saved", on.CalculateDurableName("dv.document.saved"))
}
