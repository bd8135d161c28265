package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/docvault/pkg/configs"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// Producer 本服务发布事件时使用的生产者标识.
const Producer = "docvault"

// PublishLockOverridden 发布 dv.lock.overridden 事件.
func PublishLockOverridden(pub message.Publisher, payload LockOverriddenPayload, opts ...HeaderOption) error {
	return publish(pub, TopicLockOverridden, payload, opts...)
}

// ParseLockOverridden 解析锁接管事件，主题不符时报错.
func ParseLockOverridden(msg *message.Message) (Message[LockOverriddenPayload], error) {
	return parseTopic[LockOverriddenPayload](msg, TopicLockOverridden)
}

// PublishDocumentSaved 发布 dv.document.saved 事件.
func PublishDocumentSaved(pub message.Publisher, payload DocumentSavedPayload, opts ...HeaderOption) error {
	return publish(pub, TopicDocumentSaved, payload, opts...)
}

// PublishDocumentRepaired 发布 dv.document.repaired 事件.
func PublishDocumentRepaired(pub message.Publisher, payload DocumentRepairedPayload, opts ...HeaderOption) error {
	return publish(pub, TopicDocumentRepaired, payload, opts...)
}

// PublishDocumentServed 发布 dv.document.served 事件.
func PublishDocumentServed(pub message.Publisher, payload DocumentServedPayload, opts ...HeaderOption) error {
	return publish(pub, TopicDocumentServed, payload, opts...)
}

func publish[T any](pub message.Publisher, topic string, payload T, opts ...HeaderOption) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// Emitter 按 events 配置开关发布事件.零值与 nil 均不发布任何事件.
// 发布失败只记录日志，不影响调用方的主流程.
type Emitter struct {
	pub  message.Publisher
	conf configs.EventsConfig
}

// NewEmitter 创建事件发布器.
func NewEmitter(pub message.Publisher, conf configs.EventsConfig) *Emitter {
	return &Emitter{pub: pub, conf: conf}
}

func (e *Emitter) enabled(toggle func(configs.EventsConfig) bool) bool {
	return e != nil && e.pub != nil && e.conf.Enabled && toggle(e.conf)
}

func savedOn(c configs.EventsConfig) bool      { return c.Document.Saved }
func repairedOn(c configs.EventsConfig) bool   { return c.Document.Repaired }
func servedOn(c configs.EventsConfig) bool     { return c.Document.Served }
func overriddenOn(c configs.EventsConfig) bool { return c.Lock.Overridden }

// TopicState 主题及其在当前配置下是否发布.
type TopicState struct {
	Topic   string
	Enabled bool
}

// Topics 按固定顺序列出全部主题的发布状态.
func Topics(conf configs.EventsConfig) []TopicState {
	toggles := []struct {
		topic string
		on    func(configs.EventsConfig) bool
	}{
		{TopicDocumentSaved, savedOn},
		{TopicDocumentRepaired, repairedOn},
		{TopicDocumentServed, servedOn},
		{TopicLockOverridden, overriddenOn},
	}

	out := make([]TopicState, 0, len(toggles))
	for _, t := range toggles {
		out = append(out, TopicState{Topic: t.topic, Enabled: conf.Enabled && t.on(conf)})
	}

	return out
}

func headerOpts(ctx context.Context) []HeaderOption {
	opts := []HeaderOption{WithProducer(Producer)}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, WithTraceID(sc.TraceID().String()))
	}

	return opts
}

func (e *Emitter) report(topic string, err error) {
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}

// DocumentSaved 发布保存事件.
func (e *Emitter) DocumentSaved(ctx context.Context, p DocumentSavedPayload) {
	if e.enabled(savedOn) {
		e.report(TopicDocumentSaved, PublishDocumentSaved(e.pub, p, headerOpts(ctx)...))
	}
}

// DocumentRepaired 发布修复事件.
func (e *Emitter) DocumentRepaired(ctx context.Context, p DocumentRepairedPayload) {
	if e.enabled(repairedOn) {
		e.report(TopicDocumentRepaired, PublishDocumentRepaired(e.pub, p, headerOpts(ctx)...))
	}
}

// DocumentServed 发布下载事件.
func (e *Emitter) DocumentServed(ctx context.Context, p DocumentServedPayload) {
	if e.enabled(servedOn) {
		e.report(TopicDocumentServed, PublishDocumentServed(e.pub, p, headerOpts(ctx)...))
	}
}

// LockOverridden 发布锁接管事件，返回是否已发布.
func (e *Emitter) LockOverridden(ctx context.Context, p LockOverriddenPayload) bool {
	if !e.enabled(overriddenOn) {
		return false
	}

	err := PublishLockOverridden(e.pub, p, headerOpts(ctx)...)
	e.report(TopicLockOverridden, err)

	return err == nil
}
