package serve_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/binder"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/serve"
	"github.com/yeisme/docvault/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	"github.com/yeisme/docvault/pkg/internal/types"
)

const pdfBody = "%PDF-1.4\n" + "lorem ipsum dolor sit amet "

type fixture struct {
	repo   *repository.UncachedRepository
	fs     *vfs.AferoFS
	index  *revision.Index
	server *serve.Server
	roots  vfs.Roots
}

func newFixture(t *testing.T, mutate func(*serve.Options)) *fixture {
	t.Helper()

	repo := repository.NewUncached(dbtest.New(t).DB)
	index := revision.NewIndex(repo, cache.NewCache(kv.NewMemoryKVWithClock(time.Now)), time.Minute)
	fsys := vfs.NewMemFS()
	roots := vfs.Roots{Document: "docs", Media: "uploads"}

	opts := serve.Options{Roots: roots, Disposition: "inline", Compress: true}
	if mutate != nil {
		mutate(&opts)
	}

	az := authz.NewRoleAuthorizer(configs.AuthConfig{SilentDeny: true, PublicRead: true, OverrideRole: "member"})

	return &fixture{
		repo:   repo,
		fs:     fsys,
		index:  index,
		roots:  roots,
		server: serve.New(repo, binder.New(repo, index), index, fsys, az, opts),
	}
}

// publish 创建文档、附件文件与指向它的标记.
func (f *fixture) publish(t *testing.T, slug string, status model.DocumentStatus, body string) (*model.Document, *model.Attachment) {
	t.Helper()

	ctx := context.Background()
	doc := &model.Document{Slug: slug, Title: slug, Status: status, Author: "alice"}
	require.NoError(t, f.repo.CreateDocument(ctx, doc))

	att := f.attach(t, doc, "2026/10/0123456789abcdef0123456789abcdef.pdf", body)
	require.NoError(t, f.repo.SetDocumentContent(ctx, doc.ID, binder.FormatMarker(att.ID)))

	return doc, att
}

func (f *fixture) attach(t *testing.T, doc *model.Document, rel, body string) *model.Attachment {
	t.Helper()

	ctx := context.Background()
	att := &model.Attachment{DocumentID: doc.ID, Path: rel}
	require.NoError(t, f.repo.CreateAttachment(ctx, att))

	if body != "" {
		_, err := f.fs.Write(ctx, f.roots.Path(vfs.RootDocument, rel), strings.NewReader(body))
		require.NoError(t, err)
	}

	return att
}

func (f *fixture) get(t *testing.T, req serve.Request, header http.Header) (*httptest.ResponseRecorder, serve.Result, error) {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/documents/"+req.Slug, nil)
	for k, v := range header {
		r.Header[k] = v
	}

	w := httptest.NewRecorder()
	res, err := f.server.Serve(context.Background(), w, r, req)

	return w, res, err
}

func atoi(t *testing.T, s string) int {
	t.Helper()

	n, err := strconv.Atoi(s)
	require.NoError(t, err)

	return n
}

func TestServeHeaders(t *testing.T) {
	f := newFixture(t, nil)
	f.publish(t, "handbook", model.StatusPublished, pdfBody)

	w, res, err := f.get(t, serve.Request{Slug: "handbook"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)

	h := w.Result().Header
	assert.Equal(t, `inline; filename=handbook.pdf`, h.Get("Content-Disposition"))
	assert.Equal(t, "application/pdf", h.Get("Content-Type"))
	assert.Equal(t, "no-cache", h.Get("Cache-Control"))
	assert.Equal(t, "Accept-Encoding", h.Get("Vary"))
	assert.Equal(t, serve.ETag(h.Get("Last-Modified")), h.Get("ETag"))
	assert.Equal(t, strconv.Itoa(len(pdfBody)), h.Get("Content-Length"))
	assert.Empty(t, h.Get("Content-Encoding"))
	assert.Equal(t, pdfBody, w.Body.String())
}

func TestServeRevisionFilename(t *testing.T) {
	f := newFixture(t, nil)
	doc, att := f.publish(t, "handbook", model.StatusPublished, pdfBody)

	rev := &model.Revision{DocumentID: doc.ID, Content: binder.FormatMarker(att.ID), Author: "alice"}
	require.NoError(t, f.repo.CreateRevision(context.Background(), rev))

	w, _, err := f.get(t, serve.Request{Slug: "handbook", HasRevision: true, Ordinal: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, `inline; filename=handbook-revision-1.pdf`, w.Result().Header.Get("Content-Disposition"))

	_, _, err = f.get(t, serve.Request{Slug: "handbook", HasRevision: true, Ordinal: 9}, nil)
	assert.Equal(t, http.StatusNotFound, types.StatusOf(err))
}

func TestServeConditional(t *testing.T) {
	f := newFixture(t, nil)
	f.publish(t, "handbook", model.StatusPublished, pdfBody)

	first, _, err := f.get(t, serve.Request{Slug: "handbook"}, nil)
	require.NoError(t, err)

	etag := first.Result().Header.Get("ETag")
	lastModified := first.Result().Header.Get("Last-Modified")
	bare := strings.Trim(etag, `"`)

	for _, inm := range []string{etag, `W/` + etag, `"` + bare + `-gzip"`, `"` + bare + `-deflate"`, etag + ";gzip", `"other", ` + etag} {
		w, res, err := f.get(t, serve.Request{Slug: "handbook"}, http.Header{"If-None-Match": {inm}})
		require.NoError(t, err, inm)
		assert.Equal(t, http.StatusNotModified, res.Status, inm)
		assert.Equal(t, http.StatusNotModified, w.Code, inm)
		assert.Empty(t, w.Body.Bytes(), inm)
		assert.Empty(t, w.Result().Header.Get("Content-Length"), inm)
		assert.Empty(t, w.Result().Header.Get("Content-Type"), inm)
		assert.Equal(t, etag, w.Result().Header.Get("ETag"), inm)
	}

	w, res, err := f.get(t, serve.Request{Slug: "handbook"}, http.Header{"If-Modified-Since": {lastModified}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, res.Status)
	assert.Equal(t, lastModified, w.Result().Header.Get("Last-Modified"))

	_, res, err = f.get(t, serve.Request{Slug: "handbook"}, http.Header{"If-None-Match": {`"stale"`}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestServeGzip(t *testing.T) {
	f := newFixture(t, nil)
	body := strings.Repeat(pdfBody, 50)
	f.publish(t, "handbook", model.StatusPublished, body)

	w, res, err := f.get(t, serve.Request{Slug: "handbook"}, http.Header{"Accept-Encoding": {"deflate, gzip;q=0.8"}})
	require.NoError(t, err)
	assert.Equal(t, "gzip", res.Encoding)
	assert.Equal(t, "gzip", w.Result().Header.Get("Content-Encoding"))
	assert.Equal(t, w.Body.Len(), atoi(t, w.Result().Header.Get("Content-Length")))

	zr, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)

	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))
}

func TestServeDeflateWhenGzipRefused(t *testing.T) {
	f := newFixture(t, nil)
	f.publish(t, "handbook", model.StatusPublished, pdfBody)

	w, res, err := f.get(t, serve.Request{Slug: "handbook"}, http.Header{"Accept-Encoding": {"gzip;q=0, deflate"}})
	require.NoError(t, err)
	assert.Equal(t, "deflate", res.Encoding)
	assert.Equal(t, "deflate", w.Result().Header.Get("Content-Encoding"))

	zr, err := zlib.NewReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)

	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(plain))
}

func TestServeChunkedOmitsLength(t *testing.T) {
	f := newFixture(t, func(o *serve.Options) { o.Chunked = true })
	f.publish(t, "handbook", model.StatusPublished, pdfBody)

	w, _, err := f.get(t, serve.Request{Slug: "handbook"}, http.Header{"Accept-Encoding": {"gzip"}})
	require.NoError(t, err)
	assert.Equal(t, "gzip", w.Result().Header.Get("Content-Encoding"))
	assert.Empty(t, w.Header().Values("Content-Length"))

	// 未压缩时仍然给出原始长度
	w, _, err = f.get(t, serve.Request{Slug: "handbook"}, nil)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(len(pdfBody)), w.Result().Header.Get("Content-Length"))
}

func TestServeBlockSize(t *testing.T) {
	f := newFixture(t, func(o *serve.Options) { o.BlockSize = 4 })
	f.publish(t, "handbook", model.StatusPublished, pdfBody)

	w, res, err := f.get(t, serve.Request{Slug: "handbook"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(pdfBody)), res.Bytes)
	assert.Equal(t, pdfBody, w.Body.String())
}

func TestServeResolutionErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	empty := &model.Document{Slug: "empty", Status: model.StatusPublished, Author: "alice"}
	require.NoError(t, f.repo.CreateDocument(ctx, empty))

	_, _, err := f.get(t, serve.Request{Slug: "empty"}, nil)

	var authErr *types.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "no file attached")

	// 附件记录存在但文件缺失
	missing := &model.Document{Slug: "missing", Status: model.StatusPublished, Author: "alice"}
	require.NoError(t, f.repo.CreateDocument(ctx, missing))
	att := f.attach(t, missing, "2026/10/ffffffffffffffffffffffffffffffff.pdf", "")
	require.NoError(t, f.repo.SetDocumentContent(ctx, missing.ID, binder.FormatMarker(att.ID)))

	_, _, err = f.get(t, serve.Request{Slug: "missing"}, nil)
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "not available")

	// 路径指向目录
	dir := &model.Document{Slug: "dir", Status: model.StatusPublished, Author: "alice"}
	require.NoError(t, f.repo.CreateDocument(ctx, dir))
	datt := f.attach(t, dir, "2026/10", "")
	require.NoError(t, f.fs.MkdirAll(ctx, f.roots.Path(vfs.RootDocument, "2026/10")))
	require.NoError(t, f.repo.SetDocumentContent(ctx, dir.ID, binder.FormatMarker(datt.ID)))

	_, _, err = f.get(t, serve.Request{Slug: "dir"}, nil)
	var nf *types.NotFoundError
	require.ErrorAs(t, err, &nf)

	_, _, err = f.get(t, serve.Request{Slug: "nope"}, nil)
	assert.Equal(t, http.StatusNotFound, types.StatusOf(err))
}

func TestServeAuthorization(t *testing.T) {
	f := newFixture(t, nil)
	f.publish(t, "draft", model.StatusDraft, pdfBody)

	_, _, err := f.get(t, serve.Request{Slug: "draft"}, nil)
	assert.Equal(t, http.StatusNotFound, types.StatusOf(err))

	_, res, err := f.get(t, serve.Request{Slug: "draft", User: authz.User{ID: "alice", Role: authz.RoleUser}}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)

	deny := authz.AuthorizerFunc(func(context.Context, authz.User, authz.Action, *model.Document) authz.Decision {
		return authz.DenyExplicit
	})
	strict := serve.New(f.repo, binder.New(f.repo, f.index), f.index, f.fs, deny, serve.Options{Roots: f.roots})

	r := httptest.NewRequest(http.MethodGet, "/documents/draft", nil)
	_, err = strict.Serve(context.Background(), httptest.NewRecorder(), r, serve.Request{Slug: "draft"})
	assert.Equal(t, http.StatusForbidden, types.StatusOf(err))
}

func TestServeCorruptionGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	f := newFixture(t, nil)
	f.publish(t, "handbook", model.StatusPublished, pdfBody)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/documents/handbook", nil)
	_, err := c.Writer.WriteString("stray output")
	require.NoError(t, err)

	_, err = f.server.Serve(context.Background(), c.Writer, c.Request, serve.Request{Slug: "handbook"})

	var guard *types.CorruptionGuardError
	require.True(t, errors.As(err, &guard))
	assert.Equal(t, "stray output", rec.Body.String())
}

func TestServeMimeOverride(t *testing.T) {
	f := newFixture(t, nil)
	f.publish(t, "handbook", model.StatusPublished, pdfBody)

	f.server.SetMimeOverride(func(_ *model.Attachment, sniffed string) string {
		if sniffed == "application/pdf" {
			return "application/x-pdf"
		}

		return ""
	})

	w, _, err := f.get(t, serve.Request{Slug: "handbook"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/x-pdf", w.Result().Header.Get("Content-Type"))

	w, _, err = f.get(t, serve.Request{Slug: "handbook", MimeType: "text/plain"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", w.Result().Header.Get("Content-Type"))
}
