package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"unicode"

	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/binder"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	"github.com/yeisme/docvault/pkg/internal/types"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/queue"
)

// FileInput 上传的文件.
type FileInput struct {
	Name string
	// Mime 为空时按内容嗅探
	Mime string
	Body io.Reader
}

// UploadInput 新建文档.
type UploadInput struct {
	Slug     string
	Title    string
	Status   model.DocumentStatus
	Workflow string
	Summary  string
	File     FileInput
}

// Upload 创建文档、保存首个附件、写入标记并生成修订 1.
func (s *DocumentService) Upload(ctx context.Context, user authz.User, in UploadInput, p Placement) (*model.Document, error) {
	if user.Anonymous() {
		return nil, &types.AuthorizationError{Message: "you must be logged in to upload documents"}
	}

	title := in.Title
	if title == "" {
		title = strings.TrimSuffix(in.File.Name, path.Ext(in.File.Name))
	}

	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(title)
	}

	if slug == "" {
		return nil, &types.ConflictError{Message: "a slug or title is required"}
	}

	if _, err := s.repo.GetDocumentBySlug(ctx, slug); err == nil {
		return nil, &types.ConflictError{Message: fmt.Sprintf("slug %q is already in use", slug)}
	}

	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}

	if !status.Valid() || status == model.StatusTrashed {
		return nil, &types.ConflictError{Message: fmt.Sprintf("invalid status %q", status)}
	}

	att, err := s.store(ctx, in.File, p)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		Slug:     slug,
		Title:    title,
		Status:   status,
		Author:   user.ID,
		Workflow: in.Workflow,
	}

	var (
		decision revision.Decision
		revID    uint
	)

	err = s.repo.Transaction(ctx, func(tx repository.Repository) error {
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return err
		}

		att.DocumentID = doc.ID
		if err := tx.CreateAttachment(ctx, att); err != nil {
			return err
		}

		doc.Content = binder.FormatMarker(att.ID)

		decision, revID, err = s.commit(ctx, tx, doc, user, in.Summary)

		return err
	})
	if err != nil {
		s.discard(ctx, p, att)

		return nil, fmt.Errorf("upload %s: %w", slug, err)
	}

	s.invalidate(ctx, doc.ID)
	s.saved(ctx, doc, user, decision, revID, att.ID)

	return doc, nil
}

// Replace 上传新版本文件，标记指向新附件并生成新修订.
func (s *DocumentService) Replace(ctx context.Context, user authz.User, id uint, file FileInput, summary string, p Placement) (*model.Document, error) {
	doc, err := s.load(ctx, user, id, authz.ActionEdit)
	if err != nil {
		return nil, err
	}

	att, err := s.store(ctx, file, p)
	if err != nil {
		return nil, err
	}

	att.DocumentID = doc.ID

	var (
		decision revision.Decision
		revID    uint
	)

	err = s.repo.Transaction(ctx, func(tx repository.Repository) error {
		if err := tx.CreateAttachment(ctx, att); err != nil {
			return err
		}

		doc.Content = binder.ReplaceMarker(doc.Content, att.ID)

		decision, revID, err = s.commit(ctx, tx, doc, user, summary)

		return err
	})
	if err != nil {
		s.discard(ctx, p, att)

		return nil, fmt.Errorf("replace file of %d: %w", id, err)
	}

	s.invalidate(ctx, doc.ID)
	s.saved(ctx, doc, user, decision, revID, att.ID)

	return doc, nil
}

// store 以混淆名写入文件，返回尚未落库的附件记录.
func (s *DocumentService) store(ctx context.Context, in FileInput, p Placement) (*model.Attachment, error) {
	if in.Body == nil {
		return nil, &types.ConflictError{Message: "file is required"}
	}

	br := bufio.NewReaderSize(in.Body, 512)

	mime := in.Mime
	if mime == "" || mime == "application/octet-stream" {
		head, _ := br.Peek(512)
		mime = http.DetectContentType(head)
	}

	rel := vfs.DatedPath(s.now(), vfs.ObfuscatedName(path.Ext(in.Name)))

	n, err := s.fs.Write(ctx, s.roots.Path(p.Root, rel), br)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", in.Name, err)
	}

	nlog.Logger().Debug().Str("path", rel).Str("root", string(p.Root)).Int64("size", n).Msg("file stored")

	return &model.Attachment{
		Kind: model.KindAttachment,
		Path: rel,
		Mime: mime,
		Size: n,
	}, nil
}

// discard 删除未能落库的文件.
func (s *DocumentService) discard(ctx context.Context, p Placement, att *model.Attachment) {
	if err := s.fs.Remove(ctx, s.roots.Path(p.Root, att.Path)); err != nil {
		nlog.Logger().Warn().Err(err).Str("path", att.Path).Msg("remove orphaned upload failed")
	}
}

func (s *DocumentService) saved(ctx context.Context, doc *model.Document, user authz.User, d revision.Decision, revID, attID uint) {
	nlog.Logger().Info().
		Uint("doc_id", doc.ID).
		Str("decision", d.String()).
		Uint("revision_id", revID).
		Str("actor", user.ID).
		Msg("document saved")

	s.events.DocumentSaved(ctx, queue.DocumentSavedPayload{
		Document:     ref(doc),
		Decision:     d.String(),
		RevisionID:   revID,
		Actor:        user.ID,
		AttachmentID: attID,
	})
}

// Slugify 把标题转为 URL 友好的 slug.
func Slugify(s string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)

			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')

			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
