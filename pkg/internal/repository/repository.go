// Package repository 提供文档、修订与附件的读写访问.
//
// UncachedRepository 直接读写数据库；CachedRepository 在同一读取契约之上叠加共享缓存.
// 结构校验器静态依赖 UncachedRepository，以保证只检查持久化状态且不会把待修复的数据写入缓存.
package repository

import (
	"context"
	"errors"

	"github.com/yeisme/docvault/pkg/internal/model"
)

// ErrNotFound 记录不存在.
var ErrNotFound = errors.New("record not found")

// DocumentFilter 文档列表过滤条件.
type DocumentFilter struct {
	// IncludeTrashed 是否包含回收站中的文档
	IncludeTrashed bool
	// Author 非空时只返回该作者的文档
	Author string
	// Status 非空时只返回该状态的文档
	Status model.DocumentStatus
	Offset int
	Limit  int
}

// Reader 读取契约.修订与附件列表按创建时间升序返回.
type Reader interface {
	GetDocument(ctx context.Context, id uint) (*model.Document, error)
	GetDocumentBySlug(ctx context.Context, slug string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)
	GetRevision(ctx context.Context, id uint) (*model.Revision, error)
	ListRevisions(ctx context.Context, documentID uint) ([]model.Revision, error)
	GetAttachment(ctx context.Context, id uint) (*model.Attachment, error)
	ListAttachments(ctx context.Context, documentID uint) ([]model.Attachment, error)
}

// Writer 写入契约.
type Writer interface {
	CreateDocument(ctx context.Context, doc *model.Document) error
	SaveDocument(ctx context.Context, doc *model.Document) error
	// SetDocumentContent 只改写 content 列，不更新修改时间、不产生修订
	SetDocumentContent(ctx context.Context, id uint, content string) error
	DeleteDocument(ctx context.Context, id uint) error
	CreateRevision(ctx context.Context, rev *model.Revision) error
	SaveRevision(ctx context.Context, rev *model.Revision) error
	CreateAttachment(ctx context.Context, att *model.Attachment) error
	// SetAttachmentPath 只改写存储路径与派生文件列表
	SetAttachmentPath(ctx context.Context, id uint, path string, variants []string) error
}

// Repository 读写组合.
type Repository interface {
	Reader
	Writer
	// Transaction 在同一事务中执行 fn.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}
