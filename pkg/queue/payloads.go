package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// ID 事件 ID（ULID）.
	ID string `json:"id"`
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// DocumentRef 标识事件涉及的文档.
type DocumentRef struct {
	ID    uint   `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title,omitempty"`
}

// DocumentSavedPayload 文档保存.
type DocumentSavedPayload struct {
	Document DocumentRef `json:"document"`
	// Decision 修订决策：create / merge / skip
	Decision   string `json:"decision"`
	RevisionID uint   `json:"revision_id,omitempty"`
	Actor      string `json:"actor"`
	// AttachmentID 本次保存后标记指向的附件
	AttachmentID uint `json:"attachment_id,omitempty"`
}

// DocumentRepairedPayload 结构修复已应用.
type DocumentRepairedPayload struct {
	Document DocumentRef `json:"document"`
	Code     int         `json:"code"`
	Param    uint        `json:"param"`
	Actor    string      `json:"actor"`
}

// DocumentServedPayload 附件下载.
type DocumentServedPayload struct {
	Document DocumentRef `json:"document"`
	Ordinal  int         `json:"ordinal,omitempty"`
	Status   int         `json:"status"`
	Bytes    int64       `json:"bytes"`
	Encoding string      `json:"encoding,omitempty"`
	User     string      `json:"user,omitempty"`
}

// LockOverriddenPayload 编辑锁被接管，同时作为审计记录.
type LockOverriddenPayload struct {
	Document       DocumentRef `json:"document"`
	NewHolder      string      `json:"new_holder"`
	PreviousHolder string      `json:"previous_holder"`
	// Notify 为 false 时消费者不发送通知
	Notify bool `json:"notify"`
}
