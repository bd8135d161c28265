package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/internal/model"
)

// UncachedRepository 直接访问数据库的仓储.
type UncachedRepository struct {
	db *gorm.DB
}

var _ Repository = (*UncachedRepository)(nil)

// NewUncached 创建直连数据库的仓储.
func NewUncached(db *gorm.DB) *UncachedRepository {
	return &UncachedRepository{db: db}
}

func notFound(err error, what string, key any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, key, ErrNotFound)
	}

	return fmt.Errorf("get %s %v: %w", what, key, err)
}

func (r *UncachedRepository) GetDocument(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, notFound(err, "document", id)
	}

	return &doc, nil
}

func (r *UncachedRepository) GetDocumentBySlug(ctx context.Context, slug string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&doc).Error; err != nil {
		return nil, notFound(err, "document", slug)
	}

	return &doc, nil
}

func (r *UncachedRepository) ListDocuments(ctx context.Context, f DocumentFilter) ([]model.Document, error) {
	q := r.db.WithContext(ctx).Model(&model.Document{})

	if !f.IncludeTrashed {
		q = q.Where("status <> ?", model.StatusTrashed)
	}

	if f.Author != "" {
		q = q.Where("author = ?", f.Author)
	}

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var docs []model.Document
	if err := q.Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}

func (r *UncachedRepository) GetRevision(ctx context.Context, id uint) (*model.Revision, error) {
	var rev model.Revision
	if err := r.db.WithContext(ctx).First(&rev, id).Error; err != nil {
		return nil, notFound(err, "revision", id)
	}

	return &rev, nil
}

func (r *UncachedRepository) ListRevisions(ctx context.Context, documentID uint) ([]model.Revision, error) {
	var revs []model.Revision

	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&revs).Error
	if err != nil {
		return nil, fmt.Errorf("list revisions of %d: %w", documentID, err)
	}

	return revs, nil
}

func (r *UncachedRepository) GetAttachment(ctx context.Context, id uint) (*model.Attachment, error) {
	var att model.Attachment
	if err := r.db.WithContext(ctx).First(&att, id).Error; err != nil {
		return nil, notFound(err, "attachment", id)
	}

	return &att, nil
}

func (r *UncachedRepository) ListAttachments(ctx context.Context, documentID uint) ([]model.Attachment, error) {
	var atts []model.Attachment

	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&atts).Error
	if err != nil {
		return nil, fmt.Errorf("list attachments of %d: %w", documentID, err)
	}

	return atts, nil
}

func (r *UncachedRepository) CreateDocument(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

func (r *UncachedRepository) SaveDocument(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("save document %d: %w", doc.ID, err)
	}

	return nil
}

func (r *UncachedRepository) SetDocumentContent(ctx context.Context, id uint, content string) error {
	tx := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).UpdateColumn("content", content)
	if tx.Error != nil {
		return fmt.Errorf("set content of %d: %w", id, tx.Error)
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("document %d: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteDocument 硬删除文档及其修订与附件记录.
func (r *UncachedRepository) DeleteDocument(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Revision{}).Error; err != nil {
			return fmt.Errorf("delete revisions of %d: %w", id, err)
		}

		if err := tx.Where("document_id = ?", id).Delete(&model.Attachment{}).Error; err != nil {
			return fmt.Errorf("delete attachments of %d: %w", id, err)
		}

		if err := tx.Delete(&model.Document{}, id).Error; err != nil {
			return fmt.Errorf("delete document %d: %w", id, err)
		}

		return nil
	})
}

func (r *UncachedRepository) CreateRevision(ctx context.Context, rev *model.Revision) error {
	if err := r.db.WithContext(ctx).Create(rev).Error; err != nil {
		return fmt.Errorf("create revision: %w", err)
	}

	return nil
}

func (r *UncachedRepository) SaveRevision(ctx context.Context, rev *model.Revision) error {
	if err := r.db.WithContext(ctx).Save(rev).Error; err != nil {
		return fmt.Errorf("save revision %d: %w", rev.ID, err)
	}

	return nil
}

func (r *UncachedRepository) CreateAttachment(ctx context.Context, att *model.Attachment) error {
	if att.Kind == "" {
		att.Kind = model.KindAttachment
	}

	if err := r.db.WithContext(ctx).Create(att).Error; err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}

	return nil
}

func (r *UncachedRepository) SetAttachmentPath(ctx context.Context, id uint, path string, variants []string) error {
	tx := r.db.WithContext(ctx).Model(&model.Attachment{}).Where("id = ?", id).
		Select("path", "variants").
		UpdateColumns(&model.Attachment{Path: path, Variants: variants})
	if tx.Error != nil {
		return fmt.Errorf("set path of attachment %d: %w", id, tx.Error)
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("attachment %d: %w", id, ErrNotFound)
	}

	return nil
}

func (r *UncachedRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UncachedRepository{db: tx})
	})
}
