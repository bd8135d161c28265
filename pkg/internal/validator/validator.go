// Package validator 检测并修复文档与附件之间损坏的链接.
//
// 校验器只通过 UncachedRepository 与 vfs.FS 读取持久化状态，既不会把待修复的数据写入缓存，
// 也不会因校验本身产生新修订.修复前重新推导问题并核对参数，不持有任何锁.
package validator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/binder"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/queue"
)

// 并发检查的文档数.
const concurrency = 8

// Invalidator 修复成功后需要清除的缓存.
type Invalidator interface {
	Invalidate(ctx context.Context, documentID uint) error
}

// Validator 结构校验器.
type Validator struct {
	repo        *repository.UncachedRepository
	binder      *binder.Binder
	fs          vfs.FS
	roots       vfs.Roots
	az          authz.Authorizer
	events      *queue.Emitter
	invalidates []Invalidator
}

// New 创建校验器.
func New(
	repo *repository.UncachedRepository,
	fs vfs.FS,
	roots vfs.Roots,
	az authz.Authorizer,
	events *queue.Emitter,
	invalidates ...Invalidator,
) *Validator {
	return &Validator{
		repo:        repo,
		binder:      binder.New(repo, nil),
		fs:          fs,
		roots:       roots,
		az:          az,
		events:      events,
		invalidates: invalidates,
	}
}

// Validate 检查 user 可编辑的全部未删除文档.单个文档读取失败不会中断其它文档，错误合并返回.
func (v *Validator) Validate(ctx context.Context, user authz.User) ([]Finding, error) {
	docs, err := v.repo.ListDocuments(ctx, repository.DocumentFilter{})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var (
		mu       sync.Mutex
		findings []Finding
		errs     *multierror.Error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range docs {
		doc := &docs[i]
		if v.az.Check(ctx, user, authz.ActionEdit, doc) != authz.Allow {
			continue
		}

		g.Go(func() error {
			f, err := v.Classify(gctx, doc)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("document %d: %w", doc.ID, err))

				return nil
			}

			if f != nil {
				findings = append(findings, *f)
				metrics.ValidatorFindings.WithLabelValues(strconv.Itoa(int(f.Code))).Inc()
			}

			return nil
		})
	}

	_ = g.Wait()

	sort.Slice(findings, func(i, j int) bool { return findings[i].DocumentID < findings[j].DocumentID })

	return findings, errs.ErrorOrNil()
}

// Classify 对单个文档分类，没有问题时返回 nil.每个文档最多报告一个问题.
func (v *Validator) Classify(ctx context.Context, doc *model.Document) (*Finding, error) {
	att, ok, err := v.binder.ResolveContent(ctx, doc.Content, doc.ID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return v.classifyUnresolved(ctx, doc)
	}

	return v.classifyFile(ctx, doc, att)
}

func (v *Validator) classifyUnresolved(ctx context.Context, doc *model.Document) (*Finding, error) {
	fallback, hasFallback, err := v.binder.LatestAttachment(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	markerPresent := binder.DetectForm(doc.Content) != binder.FormNone

	switch {
	case !markerPresent && hasFallback:
		return newFinding(doc.ID, doc.Slug, CodeMissingMarker, fallback.ID), nil
	case !markerPresent:
		return newFinding(doc.ID, doc.Slug, CodeNoAttachment, 0), nil
	case hasFallback:
		return newFinding(doc.ID, doc.Slug, CodeInvalidMarker, fallback.ID), nil
	default:
		return newFinding(doc.ID, doc.Slug, CodeDanglingMarker, 0), nil
	}
}

func (v *Validator) classifyFile(ctx context.Context, doc *model.Document, att *model.Attachment) (*Finding, error) {
	inDocRoot, err := vfs.Exists(ctx, v.fs, v.roots.Path(vfs.RootDocument, att.Path))
	if err != nil {
		return nil, err
	}

	if !inDocRoot {
		inMedia := false
		if v.roots.Media != v.roots.Document {
			if inMedia, err = vfs.Exists(ctx, v.fs, v.roots.Path(vfs.RootMedia, att.Path)); err != nil {
				return nil, err
			}
		}

		if inMedia {
			return newFinding(doc.ID, doc.Slug, CodeMediaRoot, att.ID), nil
		}

		return newFinding(doc.ID, doc.Slug, CodeMissingFile, att.ID), nil
	}

	if !vfs.Obfuscated(att.Path) {
		return newFinding(doc.ID, doc.Slug, CodeUnhashedName, att.ID), nil
	}

	return nil, nil
}

// logFinding 记录带文档字段的日志.
func logFinding(f *Finding, msg string) {
	nlog.Logger().Info().
		Uint("doc_id", f.DocumentID).
		Int("code", int(f.Code)).
		Uint("param", f.Param).
		Msg(msg)
}
