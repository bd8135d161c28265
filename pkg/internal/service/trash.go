package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	"github.com/yeisme/docvault/pkg/internal/types"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// Trash 把文档放入回收站，记录原状态.
func (s *DocumentService) Trash(ctx context.Context, user authz.User, id uint) (*model.Document, error) {
	doc, err := s.load(ctx, user, id, authz.ActionEdit)
	if err != nil {
		return nil, err
	}

	if !doc.Live() {
		return doc, nil
	}

	now := s.now()
	doc.PrevStatus = doc.Status
	doc.Status = model.StatusTrashed
	doc.TrashedAt = &now

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	nlog.Logger().Info().Uint("doc_id", id).Str("actor", user.ID).Msg("document trashed")

	return doc, nil
}

// Restore 从回收站恢复到原状态.
func (s *DocumentService) Restore(ctx context.Context, user authz.User, id uint) (*model.Document, error) {
	doc, err := s.load(ctx, user, id, authz.ActionEdit)
	if err != nil {
		return nil, err
	}

	if doc.Live() {
		return doc, nil
	}

	doc.Status = doc.PrevStatus
	if !doc.Status.Valid() || doc.Status == model.StatusTrashed {
		doc.Status = model.StatusDraft
	}

	doc.PrevStatus = ""
	doc.TrashedAt = nil

	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	nlog.Logger().Info().Uint("doc_id", id).Str("actor", user.ID).Msg("document restored")

	return doc, nil
}

// Purge 彻底删除回收站中的文档及其修订、附件与文件.
func (s *DocumentService) Purge(ctx context.Context, user authz.User, id uint) error {
	doc, err := s.load(ctx, user, id, authz.ActionEdit)
	if err != nil {
		return err
	}

	if doc.Live() {
		return &types.ConflictError{Message: "only documents in the trash can be purged"}
	}

	return s.purge(ctx, doc)
}

// PurgeTrashed 删除放入回收站超过 retention 的文档，返回删除数量.
func (s *DocumentService) PurgeTrashed(ctx context.Context, retention time.Duration) (int, error) {
	docs, err := s.repo.ListDocuments(ctx, repository.DocumentFilter{
		IncludeTrashed: true,
		Status:         model.StatusTrashed,
	})
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-retention)

	var (
		errs   *multierror.Error
		purged int
	)

	for i := range docs {
		doc := &docs[i]
		if doc.TrashedAt == nil || doc.TrashedAt.After(cutoff) {
			continue
		}

		if err := s.purge(ctx, doc); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("purge %d: %w", doc.ID, err))

			continue
		}

		purged++
	}

	return purged, errs.ErrorOrNil()
}

func (s *DocumentService) purge(ctx context.Context, doc *model.Document) error {
	atts, err := s.repo.ListAttachments(ctx, doc.ID)
	if err != nil {
		return err
	}

	// 先清缓存，附件 id 需要从数据库读取
	s.invalidate(ctx, doc.ID)

	if err := s.repo.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	// 删除前后之间的并发读取可能重新填充缓存
	ids := make([]uint, 0, len(atts))
	for _, a := range atts {
		ids = append(ids, a.ID)
	}

	if s.index != nil {
		_ = s.index.Invalidate(ctx, doc.ID)
	}

	for _, inv := range s.invalidates {
		if f, ok := inv.(Forgetter); ok {
			if err := f.Forget(ctx, doc.ID, doc.Slug, ids); err != nil {
				nlog.Logger().Warn().Err(err).Uint("doc_id", doc.ID).Msg("forget purged document failed")
			}
		}
	}

	var errs *multierror.Error

	for _, a := range atts {
		names := []string{a.Path}
		for _, v := range a.Variants {
			names = append(names, path.Join(path.Dir(a.Path), v))
		}

		for _, name := range names {
			for _, root := range []vfs.RootKind{vfs.RootDocument, vfs.RootMedia} {
				if err := s.fs.Remove(ctx, s.roots.Path(root, name)); err != nil {
					errs = multierror.Append(errs, err)
				}
			}
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		nlog.Logger().Warn().Err(err).Uint("doc_id", doc.ID).Msg("remove purged files failed")
	}

	nlog.Logger().Info().Uint("doc_id", doc.ID).Int("attachments", len(atts)).Msg("document purged")

	return nil
}
