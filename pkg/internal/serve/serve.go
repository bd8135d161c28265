// Package serve 实现附件文件的 HTTP 下载.
//
// 每个请求依次经过 授权 → 解析附件 → 打开文件 → 缓存协商 → 输出 几个阶段，
// 任一阶段失败都以 types 包中的错误返回，由调用方映射为 403/404/500.
package serve

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/binder"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	"github.com/yeisme/docvault/pkg/internal/types"
)

const sniffLen = 512

// Request 一次下载请求.
type Request struct {
	// Slug 与 DocumentID 二选一，Slug 优先
	Slug       string
	DocumentID uint
	// HasRevision 为 true 时下载 Ordinal 指定的修订，否则下载最新版本
	HasRevision bool
	Ordinal     int
	User        authz.User
	// MimeType 覆盖探测到的 Content-Type
	MimeType string
}

// Result 下载结果，用于日志与指标.
type Result struct {
	Status   int
	Bytes    int64
	Encoding string
	Document *model.Document
}

// MimeOverride 在探测结果基础上改写 Content-Type.
type MimeOverride func(att *model.Attachment, sniffed string) string

// Options 下载行为.
type Options struct {
	Roots       vfs.Roots
	Disposition string
	BlockSize   int
	Chunked     bool
	Compress    bool
}

// OptionsFromConfig 从配置构造 Options.
func OptionsFromConfig(conf configs.DocumentConfig) Options {
	return Options{
		Roots:       vfs.Roots{Document: conf.Root, Media: conf.MediaRoot},
		Disposition: conf.Disposition,
		BlockSize:   conf.Serve.BlockSize,
		Chunked:     conf.Serve.Chunked,
		Compress:    conf.Serve.Compress,
	}
}

// Server 文件下载服务.
type Server struct {
	repo   repository.Reader
	binder *binder.Binder
	index  *revision.Index
	fs     vfs.FS
	authz  authz.Authorizer
	opts   Options
	mime   MimeOverride
}

// New 创建下载服务.
func New(repo repository.Reader, b *binder.Binder, index *revision.Index, fsys vfs.FS,
	az authz.Authorizer, opts Options,
) *Server {
	if opts.Disposition == "" {
		opts.Disposition = configs.DefaultDisposition
	}

	return &Server{repo: repo, binder: b, index: index, fs: fsys, authz: az, opts: opts}
}

// SetMimeOverride 设置 Content-Type 改写钩子.
func (s *Server) SetMimeOverride(fn MimeOverride) {
	s.mime = fn
}

// Serve 处理一次下载，成功时响应已写入 w.
func (s *Server) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, req Request) (Result, error) {
	doc, err := s.document(ctx, req)
	if err != nil {
		return Result{}, err
	}

	res := Result{Document: doc}

	if err := s.authorize(ctx, req.User, doc); err != nil {
		return res, err
	}

	att, err := s.resolve(ctx, doc, req)
	if err != nil {
		return res, err
	}

	name := s.opts.Roots.Path(vfs.RootDocument, att.Path)

	info, err := s.fs.Stat(ctx, name)
	if errors.Is(err, vfs.ErrNotExist) {
		return res, &types.AuthorizationError{Message: "the requested file is not available"}
	}

	if err != nil {
		return res, fmt.Errorf("stat %s: %w", name, err)
	}

	if !info.Regular {
		return res, &types.NotFoundError{}
	}

	rc, err := s.fs.Open(ctx, name)
	if err != nil {
		return res, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen)

	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return res, fmt.Errorf("read %s: %w", name, err)
	}

	if err := guard(w); err != nil {
		return res, err
	}

	h := s.headers(doc, att, req, info, http.DetectContentType(head))

	if notModified(r, h.etag, info.ModTime) {
		w.Header().Set("ETag", h.etag)
		w.Header().Set("Last-Modified", h.lastModified)
		w.WriteHeader(http.StatusNotModified)
		res.Status = http.StatusNotModified

		return res, nil
	}

	h.apply(w.Header())

	// 大文件传输不受连接写超时限制
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	res.Status = http.StatusOK

	encoding := ""
	if s.opts.Compress {
		encoding = negotiate(r.Header.Get("Accept-Encoding"))
	}

	if encoding != "" {
		res.Encoding = encoding
		res.Bytes, err = s.writeCompressed(w, r, br, encoding)

		return res, err
	}

	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return res, nil
	}

	res.Bytes, err = s.stream(w, br)

	return res, err
}

func (s *Server) document(ctx context.Context, req Request) (*model.Document, error) {
	var (
		doc *model.Document
		err error
	)

	if req.Slug != "" {
		doc, err = s.repo.GetDocumentBySlug(ctx, req.Slug)
	} else {
		doc, err = s.repo.GetDocument(ctx, req.DocumentID)
	}

	if errors.Is(err, repository.ErrNotFound) {
		return nil, &types.NotFoundError{}
	}

	return doc, err
}

func (s *Server) authorize(ctx context.Context, user authz.User, doc *model.Document) error {
	switch s.authz.Check(ctx, user, authz.ActionRead, doc) {
	case authz.Allow:
		return nil
	case authz.DenySilent:
		return &types.NotFoundError{}
	default:
		return &types.AuthorizationError{Message: "you are not allowed to view this document"}
	}
}

func (s *Server) resolve(ctx context.Context, doc *model.Document, req Request) (*model.Attachment, error) {
	noFile := &types.AuthorizationError{Message: "no file attached to this document"}

	if !req.HasRevision || req.Ordinal == 0 {
		latest, err := s.binder.LatestRevision(ctx, doc.ID)
		if err != nil {
			return nil, err
		}

		if latest.Attachment == nil {
			return nil, noFile
		}

		return latest.Attachment, nil
	}

	revID, ok, err := s.index.RevisionID(ctx, req.Ordinal, doc.ID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, &types.NotFoundError{Message: "revision not found"}
	}

	att, ok, err := s.binder.Resolve(ctx, binder.RevisionTarget(revID))
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, noFile
	}

	return att, nil
}

// writtenReporter 由 gin.ResponseWriter 实现.
type writtenReporter interface {
	Written() bool
}

// guard 输出通道已有数据或响应头已提交时拒绝继续.
func guard(w http.ResponseWriter) error {
	if wr, ok := w.(writtenReporter); ok && wr.Written() {
		return &types.CorruptionGuardError{Reason: "response already started by another writer"}
	}

	return nil
}

// stream 按块写出未压缩内容，块大小为 0 时一次写出.
func (s *Server) stream(w http.ResponseWriter, r io.Reader) (int64, error) {
	if s.opts.BlockSize <= 0 {
		return io.Copy(w, r)
	}

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, s.opts.BlockSize)

	var total int64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)

			if werr != nil {
				return total, werr
			}

			if flusher != nil {
				flusher.Flush()
			}
		}

		if errors.Is(err, io.EOF) {
			return total, nil
		}

		if err != nil {
			return total, err
		}
	}
}
