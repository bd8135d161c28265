// Package queue 定义文档领域事件：主题、负载与信封.事件用于审计与异步通知，
// 由 Emitter 按配置开关发布到 storage/mq 提供的 watermill Publisher.
//
// 信封是 JSON：
//
//	{
//	  "header": {
//	    "id": "01JA2Z8Q4N6D9V7X3K5M1B0C2E",
//	    "topic": "dv.lock.overridden",
//	    "trace_id": "4bf92f3577b34da6a3ce929d0e0e4736",
//	    "producer": "docvault",
//	    "occurred_at": "2026-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { ... }
//	}
//
// id 是 ULID，按时间有序，消费者可以拿它做幂等键；未知字段应当忽略.
// trace_id 同时写入 watermill 的 correlation_id 元数据.
package queue

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/bytedance/sonic"
	"github.com/oklog/ulid"
)

const PayloadVersionV1 = "v1"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEventID 同一毫秒内单调递增.
func NewEventID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// HeaderOption 修改事件头.
type HeaderOption func(*EventHeader)

func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// NewEventHeader 以当前 UTC 时间生成事件头.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	now := time.Now().UTC()

	h := EventHeader{
		ID:         NewEventID(now),
		Topic:      topic,
		OccurredAt: now,
		Version:    PayloadVersionV1,
	}

	for _, opt := range opts {
		opt(&h)
	}

	return h
}

// NewWatermillMessage 信封作为消息体，消息 UUID 即事件 ID.头部字段另外抄一份到元数据，
// 不解码消息体也能按主题、生产者过滤.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	h := NewEventHeader(topic, opts...)

	data, err := sonic.Marshal(Message[T]{Header: h, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(h.ID, data)

	for k, v := range map[string]string{
		"topic":       topic,
		"producer":    h.Producer,
		"version":     h.Version,
		"occurred_at": h.OccurredAt.Format(time.RFC3339Nano),
	} {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	if h.TraceID != "" {
		middleware.SetCorrelationID(h.TraceID, msg)
	}

	return msg, nil
}

// ParseWatermillMessage 解出信封，不检查主题.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	var m Message[T]

	if err := sonic.Unmarshal(msg.Payload, &m); err != nil {
		return m, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}

	return m, nil
}

// parseTopic 解出信封并要求头部主题与期望一致，订阅通配主题时防止把别的事件当成这一种.
func parseTopic[T any](msg *message.Message, topic string) (Message[T], error) {
	m, err := ParseWatermillMessage[T](msg)
	if err != nil {
		return m, err
	}

	if m.Header.Topic != topic {
		return m, fmt.Errorf("event %s has topic %q, want %q", msg.UUID, m.Header.Topic, topic)
	}

	return m, nil
}
