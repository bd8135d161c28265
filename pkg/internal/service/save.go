package service

import (
	"context"
	"fmt"

	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/types"
)

// UpdateInput 编辑文档字段.nil 表示不修改.
type UpdateInput struct {
	Title   *string
	Status  *model.DocumentStatus
	Summary string
	// Autosave 只记录自动保存修订，不修改文档
	Autosave bool
}

// Update 编辑标题、状态或摘要，按合并策略记录修订.
func (s *DocumentService) Update(ctx context.Context, user authz.User, id uint, in UpdateInput) (*model.Document, error) {
	doc, err := s.load(ctx, user, id, authz.ActionEdit)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		doc.Title = *in.Title
	}

	if in.Status != nil {
		st := *in.Status
		if !st.Valid() || st == model.StatusTrashed {
			return nil, &types.ConflictError{Message: fmt.Sprintf("invalid status %q", st)}
		}

		doc.Status = st
	}

	if in.Autosave {
		rev := s.snapshot(doc, user, in.Summary)
		rev.Autosave = true

		if err := s.repo.CreateRevision(ctx, rev); err != nil {
			return nil, err
		}

		return doc, nil
	}

	var (
		decision revision.Decision
		revID    uint
	)

	err = s.repo.Transaction(ctx, func(tx repository.Repository) error {
		decision, revID, err = s.commit(ctx, tx, doc, user, in.Summary)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update document %d: %w", id, err)
	}

	s.invalidate(ctx, doc.ID)
	s.saved(ctx, doc, user, decision, revID, 0)

	return doc, nil
}

func (s *DocumentService) snapshot(doc *model.Document, user authz.User, summary string) *model.Revision {
	return &model.Revision{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Content:    doc.Content,
		Author:     user.ID,
		Summary:    summary,
		CreatedAt:  s.now(),
	}
}

// commit 保存文档并按合并策略创建、合并或跳过修订.
func (s *DocumentService) commit(
	ctx context.Context, tx repository.Repository, doc *model.Document, user authz.User, summary string,
) (revision.Decision, uint, error) {
	if err := tx.SaveDocument(ctx, doc); err != nil {
		return revision.Skip, 0, err
	}

	revs, err := tx.ListRevisions(ctx, doc.ID)
	if err != nil {
		return revision.Skip, 0, err
	}

	var prev *model.Revision

	for i := len(revs) - 1; i >= 0; i-- {
		if !revs[i].Autosave {
			prev = &revs[i]

			break
		}
	}

	next := s.snapshot(doc, user, summary)

	d := s.policy.Decide(prev, next)
	switch d {
	case revision.Create:
		if err := tx.CreateRevision(ctx, next); err != nil {
			return d, 0, err
		}

		return d, next.ID, nil
	case revision.Merge:
		if next.Summary != "" {
			prev.Summary = next.Summary
		}
		if err := tx.SaveRevision(ctx, prev); err != nil {
			return d, 0, err
		}

		return d, prev.ID, nil
	default:
		return d, 0, nil
	}
}
