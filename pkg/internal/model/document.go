package model

import (
	"time"
)

// DocumentStatus 文档发布状态.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusPrivate   DocumentStatus = "private"
	StatusPending   DocumentStatus = "pending"
	StatusPublished DocumentStatus = "published"
	StatusTrashed   DocumentStatus = "trashed"
)

// Valid 报告状态是否为已知取值.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPrivate, StatusPending, StatusPublished, StatusTrashed:
		return true
	default:
		return false
	}
}

// Document 文档：拥有一条修订链与一组附件，Content 中的标记指向当前附件.
type Document struct {
	ID     uint           `gorm:"primaryKey"          json:"id"`
	Slug   string         `gorm:"size:200;uniqueIndex" json:"slug"`
	Title  string         `gorm:"size:512"            json:"title"`
	Status DocumentStatus `gorm:"size:16;index"       json:"status"`
	Author string         `gorm:"size:255;index"      json:"author"`
	// Content 保存附件标记，标记之后可跟随描述文本
	Content string `gorm:"type:text" json:"content"`
	// Workflow 审阅阶段标签，与 Status 正交
	Workflow string `gorm:"size:64;index" json:"workflow"`
	// PrevStatus 放入回收站前的状态，恢复时使用
	PrevStatus DocumentStatus `gorm:"size:16" json:"prev_status,omitempty"`
	TrashedAt  *time.Time     `gorm:"index"   json:"trashed_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"modified_at"`
}

// Live 报告文档是否未被放入回收站.
func (d *Document) Live() bool {
	return d.Status != StatusTrashed
}
