package model

import "time"

// AttachmentKind 附件记录类型.
type AttachmentKind string

const (
	// KindAttachment 用户上传的文档版本文件，唯一可被标记绑定的类型.
	KindAttachment AttachmentKind = "attachment"
	// KindPreview 由系统生成的预览文件.
	KindPreview AttachmentKind = "preview"
)

// Attachment 一次上传产生的二进制版本记录，创建后不再原地修改文件内容.
type Attachment struct {
	ID         uint           `gorm:"primaryKey"                       json:"id"`
	DocumentID uint           `gorm:"index:idx_attachment_doc_created" json:"document_id"`
	Kind       AttachmentKind `gorm:"size:16;default:attachment"       json:"kind"`
	// Path 相对于存储根目录的路径，文件名为 32 位十六进制混淆名
	Path string `gorm:"size:1024" json:"path"`
	// Variants 与主文件同目录的派生尺寸文件名
	Variants  []string  `gorm:"serializer:json;type:text"        json:"variants,omitempty"`
	Mime      string    `gorm:"size:255"                         json:"mime"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `gorm:"index:idx_attachment_doc_created" json:"created_at"`
}
