package validator

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/binder"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	"github.com/yeisme/docvault/pkg/internal/types"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/queue"
)

// Fix 对文档应用修复.问题从持久化存储重新推导，code 或 param 与当前状态不符时返回
// InconsistentParametersError.
func (v *Validator) Fix(ctx context.Context, user authz.User, documentID uint, code int, param uint) error {
	doc, err := v.repo.GetDocument(ctx, documentID)
	if errors.Is(err, repository.ErrNotFound) {
		return &types.NotFoundError{Message: fmt.Sprintf("document %d not found", documentID)}
	}

	if err != nil {
		return err
	}

	if v.az.Check(ctx, user, authz.ActionEdit, doc) != authz.Allow {
		return &types.AuthorizationError{Message: "you are not allowed to edit this document"}
	}

	inconsistent := func(reason string) error {
		return &types.InconsistentParametersError{DocumentID: documentID, Code: code, Param: param, Reason: reason}
	}

	if !Code(code).Valid() {
		return inconsistent("unknown code")
	}

	f, err := v.Classify(ctx, doc)
	if err != nil {
		return err
	}

	if f == nil {
		return inconsistent("document has no structure problem")
	}

	if int(f.Code) != code {
		return inconsistent(fmt.Sprintf("current problem is code %d", f.Code))
	}

	if !f.Fixable {
		return f.Err()
	}

	if f.Param != param {
		return inconsistent(fmt.Sprintf("current parameter is %d", f.Param))
	}

	if err := v.apply(ctx, doc, f); err != nil {
		return fmt.Errorf("fix document %d code %d: %w", documentID, code, err)
	}

	for _, inv := range v.invalidates {
		if err := inv.Invalidate(ctx, documentID); err != nil {
			nlog.Logger().Warn().Err(err).Uint("doc_id", documentID).Msg("invalidate after fix failed")
		}
	}

	metrics.ValidatorFixes.WithLabelValues(strconv.Itoa(code)).Inc()
	logFinding(f, "structure problem fixed")

	v.events.DocumentRepaired(ctx, queue.DocumentRepairedPayload{
		Document: queue.DocumentRef{ID: doc.ID, Slug: doc.Slug, Title: doc.Title},
		Code:     code,
		Param:    param,
		Actor:    user.ID,
	})

	return nil
}

func (v *Validator) apply(ctx context.Context, doc *model.Document, f *Finding) error {
	switch f.Code {
	case CodeMissingMarker, CodeInvalidMarker:
		return v.repo.SetDocumentContent(ctx, doc.ID, binder.ReplaceMarker(doc.Content, f.Param))
	case CodeUnhashedName:
		return v.rehash(ctx, f.Param)
	case CodeMediaRoot:
		return v.relocate(ctx, f.Param)
	default:
		return f.Err()
	}
}

// rehash 复制到新的混淆名、更新存储路径、再删除原文件.
// 删除失败时新路径已生效，残留的原文件不影响后续校验.
func (v *Validator) rehash(ctx context.Context, attachmentID uint) error {
	att, err := v.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}

	oldBase := vfs.Stem(att.Path)
	dir := path.Dir(att.Path)
	newName := vfs.ObfuscatedName(path.Ext(att.Path))
	newBase := vfs.Stem(newName)
	newRel := path.Join(dir, newName)

	type pair struct{ src, dst string }

	pairs := []pair{{att.Path, newRel}}
	variants := make([]string, 0, len(att.Variants))

	for _, name := range att.Variants {
		renamed := name
		if suffix, ok := strings.CutPrefix(name, oldBase); ok {
			renamed = newBase + suffix
		}

		variants = append(variants, renamed)
		pairs = append(pairs, pair{path.Join(dir, name), path.Join(dir, renamed)})
	}

	var copied []string

	for i, p := range pairs {
		src := v.roots.Path(vfs.RootDocument, p.src)
		dst := v.roots.Path(vfs.RootDocument, p.dst)

		if i > 0 {
			ok, err := vfs.Exists(ctx, v.fs, src)
			if err != nil {
				return err
			}

			if !ok {
				continue
			}
		}

		if err := v.fs.Copy(ctx, src, dst); err != nil {
			return fmt.Errorf("copy %s: %w", p.src, err)
		}

		if _, err := v.fs.Stat(ctx, dst); err != nil {
			return fmt.Errorf("verify %s: %w", p.dst, err)
		}

		copied = append(copied, src)
	}

	if err := v.repo.SetAttachmentPath(ctx, att.ID, newRel, variants); err != nil {
		return err
	}

	for _, src := range copied {
		if err := v.fs.Remove(ctx, src); err != nil {
			nlog.Logger().Warn().Err(err).Str("path", src).Msg("remove original after rename failed")
		}
	}

	return nil
}

// relocate 把主文件与派生文件从媒体目录移到文档目录，相对路径不变.
func (v *Validator) relocate(ctx context.Context, attachmentID uint) error {
	att, err := v.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return err
	}

	if err := vfs.Move(ctx, v.fs,
		v.roots.Path(vfs.RootMedia, att.Path), v.roots.Path(vfs.RootDocument, att.Path)); err != nil {
		return err
	}

	dir := path.Dir(att.Path)

	for _, name := range att.Variants {
		rel := path.Join(dir, name)

		err := vfs.Move(ctx, v.fs, v.roots.Path(vfs.RootMedia, rel), v.roots.Path(vfs.RootDocument, rel))
		if err != nil && !errors.Is(err, vfs.ErrNotExist) {
			return err
		}
	}

	return nil
}
