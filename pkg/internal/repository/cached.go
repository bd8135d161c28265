package repository

import (
	"context"
	"time"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/internal/model"
)

// 缓存命名空间.
const (
	NSDocument     = "doc"
	NSDocumentSlug = "doc:slug"
	NSAttachment   = "attachment"
	NSAttachments  = "doc:attachments"
)

// CachedRepository 在 Reader 之上叠加共享缓存，只缓存读取.
// 写方在保存后调用 Invalidate，保证之后发起的读取能看到新值.
type CachedRepository struct {
	next  Reader
	cache *cache.Cache
	ttl   time.Duration
}

var _ Reader = (*CachedRepository)(nil)

// NewCached 创建带缓存的只读仓储.
func NewCached(next Reader, c *cache.Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{next: next, cache: c, ttl: ttl}
}

func (r *CachedRepository) GetDocument(ctx context.Context, id uint) (*model.Document, error) {
	return cache.GetOrSet(ctx, r.cache, cache.Key(NSDocument, id), func() (*model.Document, error) {
		return r.next.GetDocument(ctx, id)
	}, r.ttl)
}

// GetDocumentBySlug 缓存 slug 到 id 的映射，文档本体仍走 GetDocument 缓存.
func (r *CachedRepository) GetDocumentBySlug(ctx context.Context, slug string) (*model.Document, error) {
	id, err := cache.GetOrSet(ctx, r.cache, cache.Key(NSDocumentSlug, slug), func() (uint, error) {
		doc, err := r.next.GetDocumentBySlug(ctx, slug)
		if err != nil {
			return 0, err
		}

		return doc.ID, nil
	}, r.ttl)
	if err != nil {
		return nil, err
	}

	return r.GetDocument(ctx, id)
}

// ListDocuments 不缓存.
func (r *CachedRepository) ListDocuments(ctx context.Context, f DocumentFilter) ([]model.Document, error) {
	return r.next.ListDocuments(ctx, f)
}

// GetRevision 修订不可变，直接缓存.
func (r *CachedRepository) GetRevision(ctx context.Context, id uint) (*model.Revision, error) {
	return cache.GetOrSet(ctx, r.cache, cache.Key("revision", id), func() (*model.Revision, error) {
		return r.next.GetRevision(ctx, id)
	}, r.ttl)
}

// ListRevisions 不缓存，修订索引自行缓存其推导结果.
func (r *CachedRepository) ListRevisions(ctx context.Context, documentID uint) ([]model.Revision, error) {
	return r.next.ListRevisions(ctx, documentID)
}

func (r *CachedRepository) GetAttachment(ctx context.Context, id uint) (*model.Attachment, error) {
	return cache.GetOrSet(ctx, r.cache, cache.Key(NSAttachment, id), func() (*model.Attachment, error) {
		return r.next.GetAttachment(ctx, id)
	}, r.ttl)
}

func (r *CachedRepository) ListAttachments(ctx context.Context, documentID uint) ([]model.Attachment, error) {
	return cache.GetOrSet(ctx, r.cache, cache.Key(NSAttachments, documentID), func() ([]model.Attachment, error) {
		return r.next.ListAttachments(ctx, documentID)
	}, r.ttl)
}

// Invalidate 清除文档及其附件的缓存.附件 id 从持久化存储读取，避免遗漏新附件.
func (r *CachedRepository) Invalidate(ctx context.Context, documentID uint) error {
	keys := []string{cache.Key(NSDocument, documentID), cache.Key(NSAttachments, documentID)}

	atts, err := r.next.ListAttachments(ctx, documentID)
	if err != nil {
		return err
	}

	for _, a := range atts {
		keys = append(keys, cache.Key(NSAttachment, a.ID))
	}

	return r.cache.Delete(ctx, keys...)
}

// Forget 文档被删除后清除其全部缓存，附件 id 由调用方给出.
func (r *CachedRepository) Forget(ctx context.Context, documentID uint, slug string, attachmentIDs []uint) error {
	keys := []string{
		cache.Key(NSDocument, documentID),
		cache.Key(NSAttachments, documentID),
		cache.Key(NSDocumentSlug, slug),
	}

	for _, id := range attachmentIDs {
		keys = append(keys, cache.Key(NSAttachment, id))
	}

	return r.cache.Delete(ctx, keys...)
}
