// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：dv.<域>.<动作>，尽量稳定且向后兼容.
// 域：document(文档)、lock(编辑锁)

const (
	// 文档领域.
	TopicDocumentSaved    = "dv.document.saved"    // 文档保存（新建修订、合并或无变化）
	TopicDocumentRepaired = "dv.document.repaired" // 结构校验器的修复已应用
	TopicDocumentServed   = "dv.document.served"   // 附件被下载

	// 编辑锁领域.
	TopicLockOverridden = "dv.lock.overridden" // 编辑锁被接管，消费者向原持有人发送通知

	// 通配模式（NATS 风格）.
	TopicDocumentAll = "dv.document.>"
	TopicLockAll     = "dv.lock.>"
)
