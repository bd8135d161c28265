package binder

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
)

// RevisionLister 提供按时间倒序的修订列表，首项为文档当前状态.
type RevisionLister interface {
	RevisionList(ctx context.Context, documentID uint) ([]revision.Entry, error)
}

// Binder 解析标记并查找附件.
type Binder struct {
	repo      repository.Reader
	revisions RevisionLister
}

// New 创建 Binder.revisions 为 nil 时 LatestRevision 不可用，结构校验器就是这样使用的.
func New(repo repository.Reader, revisions RevisionLister) *Binder {
	return &Binder{repo: repo, revisions: revisions}
}

// Target 解析目标，RevisionID 非零时表示修订，否则表示文档.
type Target struct {
	DocumentID uint
	RevisionID uint
}

// DocumentTarget 以文档为解析目标.
func DocumentTarget(id uint) Target { return Target{DocumentID: id} }

// RevisionTarget 以修订为解析目标.
func RevisionTarget(id uint) Target { return Target{RevisionID: id} }

// Resolve 读取目标内容中的标记并返回其附件.
func (b *Binder) Resolve(ctx context.Context, t Target) (*model.Attachment, bool, error) {
	if t.RevisionID != 0 {
		return b.ResolveRevision(ctx, t.RevisionID)
	}

	return b.ResolveDocument(ctx, t.DocumentID)
}

// ResolveContent 解析内容中的标记，附件必须属于 documentID 且类型为 attachment.
func (b *Binder) ResolveContent(ctx context.Context, content string, documentID uint) (*model.Attachment, bool, error) {
	id, ok := ExtractMarker(content)
	if !ok {
		return nil, false, nil
	}

	att, err := b.repo.GetAttachment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	if att.DocumentID != documentID || att.Kind != model.KindAttachment {
		return nil, false, nil
	}

	return att, true, nil
}

// ResolveDocument 解析文档当前内容指向的附件.
func (b *Binder) ResolveDocument(ctx context.Context, documentID uint) (*model.Attachment, bool, error) {
	doc, err := b.repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, false, err
	}

	return b.ResolveContent(ctx, doc.Content, doc.ID)
}

// ResolveRevision 解析修订快照指向的附件，归属以修订的父文档为准.
func (b *Binder) ResolveRevision(ctx context.Context, revisionID uint) (*model.Attachment, bool, error) {
	rev, err := b.repo.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, false, err
	}

	return b.ResolveContent(ctx, rev.Content, rev.DocumentID)
}

// LatestAttachment 返回文档最近创建的附件.
func (b *Binder) LatestAttachment(ctx context.Context, documentID uint) (*model.Attachment, bool, error) {
	atts, err := b.repo.ListAttachments(ctx, documentID)
	if err != nil {
		return nil, false, err
	}

	for i := len(atts) - 1; i >= 0; i-- {
		if atts[i].Kind == model.KindAttachment {
			att := atts[i]

			return &att, true, nil
		}
	}

	return nil, false, nil
}

// Resolved LatestRevision 的结果.
type Resolved struct {
	Entry      revision.Entry
	Attachment *model.Attachment
	// Synthesized 为 true 时 Entry.Content 中的标记是为展示临时生成的，未写回存储
	Synthesized bool
}

// LatestRevision 取最新修订并解析其附件，标记失效时退回到最新附件.
func (b *Binder) LatestRevision(ctx context.Context, documentID uint) (Resolved, error) {
	if b.revisions == nil {
		return Resolved{}, fmt.Errorf("binder has no revision source")
	}

	list, err := b.revisions.RevisionList(ctx, documentID)
	if err != nil {
		return Resolved{}, err
	}

	if len(list) == 0 {
		return Resolved{}, fmt.Errorf("document %d: %w", documentID, repository.ErrNotFound)
	}

	res := Resolved{Entry: list[0]}

	att, ok, err := b.ResolveContent(ctx, res.Entry.Content, documentID)
	if err != nil {
		return Resolved{}, err
	}

	if ok {
		res.Attachment = att

		return res, nil
	}

	latest, ok, err := b.LatestAttachment(ctx, documentID)
	if err != nil {
		return Resolved{}, err
	}

	if ok {
		res.Attachment = latest
		res.Entry.Content = ReplaceMarker(res.Entry.Content, latest.ID)
		res.Synthesized = true
	}

	return res, nil
}
