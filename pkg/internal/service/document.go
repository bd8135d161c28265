package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	"github.com/yeisme/docvault/pkg/internal/types"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/queue"
)

// Invalidator 保存后需要清除的缓存.
type Invalidator interface {
	Invalidate(ctx context.Context, documentID uint) error
}

// Forgetter 文档被删除后清除缓存，不再回查数据库.
type Forgetter interface {
	Forget(ctx context.Context, documentID uint, slug string, attachmentIDs []uint) error
}

// Placement 上传文件的存储位置，显式传入而不是读取全局状态.
type Placement struct {
	Root vfs.RootKind
}

// DocumentPlacement 存入配置的文档目录.
func DocumentPlacement() Placement { return Placement{Root: vfs.RootDocument} }

// MediaPlacement 存入默认媒体目录.
func MediaPlacement() Placement { return Placement{Root: vfs.RootMedia} }

// DocumentService 文档的上传、编辑、回收站与工作流操作.
type DocumentService struct {
	repo        *repository.UncachedRepository
	reader      repository.Reader
	index       *revision.Index
	fs          vfs.FS
	roots       vfs.Roots
	az          authz.Authorizer
	policy      revision.MergePolicy
	events      *queue.Emitter
	invalidates []Invalidator
	now         func() time.Time
}

// Deps DocumentService 的依赖.
type Deps struct {
	Repo *repository.UncachedRepository
	// Reader 读取路径使用的仓储，通常为 CachedRepository，为空时使用 Repo
	Reader repository.Reader
	Index  *revision.Index
	FS     vfs.FS
	Auth   authz.Authorizer
	Events *queue.Emitter
	// Invalidates 保存后清除的缓存
	Invalidates []Invalidator
}

// NewDocumentService 创建文档服务.
func NewDocumentService(d Deps, conf configs.DocumentConfig) *DocumentService {
	reader := d.Reader
	if reader == nil {
		reader = d.Repo
	}

	return &DocumentService{
		repo:        d.Repo,
		reader:      reader,
		index:       d.Index,
		fs:          d.FS,
		roots:       vfs.Roots{Document: conf.Root, Media: conf.MediaRoot},
		az:          d.Auth,
		policy:      revision.MergePolicy{Window: conf.RevisionMergeWindow},
		events:      d.Events,
		invalidates: d.Invalidates,
		now:         time.Now,
	}
}

// Roots 返回存储根目录.
func (s *DocumentService) Roots() vfs.Roots {
	return s.roots
}

// load 读取文档并检查授权.静默拒绝与不存在都返回 NotFoundError.写操作绕过缓存读取.
func (s *DocumentService) load(ctx context.Context, user authz.User, id uint, action authz.Action) (*model.Document, error) {
	src := s.reader
	if action != authz.ActionRead {
		src = s.repo
	}

	doc, err := src.GetDocument(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &types.NotFoundError{Message: fmt.Sprintf("document %d not found", id)}
	}

	if err != nil {
		return nil, err
	}

	switch s.az.Check(ctx, user, action, doc) {
	case authz.Allow:
		return doc, nil
	case authz.DenySilent:
		return nil, &types.NotFoundError{Message: fmt.Sprintf("document %d not found", id)}
	default:
		return nil, &types.AuthorizationError{Message: fmt.Sprintf("you are not allowed to %s this document", action)}
	}
}

// Get 返回用户可读的文档.
func (s *DocumentService) Get(ctx context.Context, user authz.User, id uint) (*model.Document, error) {
	return s.load(ctx, user, id, authz.ActionRead)
}

// GetBySlug 按 slug 返回用户可读的文档.
func (s *DocumentService) GetBySlug(ctx context.Context, user authz.User, slug string) (*model.Document, error) {
	doc, err := s.reader.GetDocumentBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &types.NotFoundError{Message: fmt.Sprintf("document %q not found", slug)}
	}

	if err != nil {
		return nil, err
	}

	return s.load(ctx, user, doc.ID, authz.ActionRead)
}

// List 返回用户可读的文档.
func (s *DocumentService) List(ctx context.Context, user authz.User, f repository.DocumentFilter) ([]model.Document, error) {
	docs, err := s.repo.ListDocuments(ctx, f)
	if err != nil {
		return nil, err
	}

	visible := make([]model.Document, 0, len(docs))

	for i := range docs {
		if s.az.Check(ctx, user, authz.ActionRead, &docs[i]) == authz.Allow {
			visible = append(visible, docs[i])
		}
	}

	return visible, nil
}

// Revisions 返回修订列表，第一项为文档当前状态.
func (s *DocumentService) Revisions(ctx context.Context, user authz.User, id uint) ([]revision.Entry, error) {
	if _, err := s.load(ctx, user, id, authz.ActionRead); err != nil {
		return nil, err
	}

	return s.index.RevisionList(ctx, id)
}

// SetWorkflow 设置审阅阶段标签，不产生修订.
func (s *DocumentService) SetWorkflow(ctx context.Context, user authz.User, id uint, state string) (*model.Document, error) {
	doc, err := s.load(ctx, user, id, authz.ActionEdit)
	if err != nil {
		return nil, err
	}

	doc.Workflow = state
	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	nlog.Logger().Info().Uint("doc_id", id).Str("workflow", state).Str("actor", user.ID).Msg("workflow changed")

	return doc, nil
}

// invalidate 清除修订索引与文档缓存，失败只记录日志.
func (s *DocumentService) invalidate(ctx context.Context, id uint) {
	if s.index != nil {
		if err := s.index.Invalidate(ctx, id); err != nil {
			nlog.Logger().Warn().Err(err).Uint("doc_id", id).Msg("invalidate revision index failed")
		}
	}

	for _, inv := range s.invalidates {
		if err := inv.Invalidate(ctx, id); err != nil {
			nlog.Logger().Warn().Err(err).Uint("doc_id", id).Msg("invalidate document cache failed")
		}
	}
}

func ref(doc *model.Document) queue.DocumentRef {
	return queue.DocumentRef{ID: doc.ID, Slug: doc.Slug, Title: doc.Title}
}
