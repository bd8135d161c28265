package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/binder"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
	"github.com/yeisme/docvault/pkg/internal/types"
)

var (
	alice = authz.User{ID: "alice", Role: authz.RoleUser}
	bob   = authz.User{ID: "bob", Role: authz.RoleUser}
)

const pdf = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"

type fixture struct {
	svc   *DocumentService
	repo  *repository.UncachedRepository
	index *revision.Index
	fs    vfs.FS
	clock time.Time
}

func newFixture(t *testing.T, window time.Duration) *fixture {
	t.Helper()

	repo := repository.NewUncached(dbtest.New(t).DB)
	c := cache.NewCache(kv.NewMemoryKVWithClock(time.Now))
	cached := repository.NewCached(repo, c, time.Minute)
	index := revision.NewIndex(cached, c, time.Minute)
	fs := vfs.NewMemFS()

	svc := NewDocumentService(Deps{
		Repo:        repo,
		Reader:      cached,
		Index:       index,
		FS:          fs,
		Auth:        authz.NewRoleAuthorizer(configs.AuthConfig{}),
		Invalidates: []Invalidator{cached},
	}, configs.DocumentConfig{Root: "docs", MediaRoot: "media", RevisionMergeWindow: window})

	f := &fixture{svc: svc, repo: repo, index: index, fs: fs, clock: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return f.clock }

	return f
}

func (f *fixture) upload(t *testing.T, title string) *model.Document {
	t.Helper()

	doc, err := f.svc.Upload(context.Background(), alice, UploadInput{
		Title:  title,
		Status: model.StatusPrivate,
		File:   FileInput{Name: "report.PDF", Body: bytes.NewBufferString(pdf)},
	}, DocumentPlacement())
	require.NoError(t, err)

	return doc
}

func (f *fixture) ordinals(t *testing.T, id uint) int {
	t.Helper()

	idx, err := f.index.Indices(context.Background(), id)
	require.NoError(t, err)

	return len(idx)
}

func TestUploadCreatesFirstRevision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	doc := f.upload(t, "Q3 Report (Final)")
	assert.Equal(t, "q3-report-final", doc.Slug)
	assert.Equal(t, "alice", doc.Author)

	id, ok := binder.ExtractMarker(doc.Content)
	require.True(t, ok)

	att, err := f.repo.GetAttachment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, att.DocumentID)
	assert.Equal(t, "application/pdf", att.Mime)
	assert.Equal(t, int64(len(pdf)), att.Size)
	assert.True(t, vfs.Obfuscated(att.Path))
	assert.Equal(t, "2026/10", att.Path[:7])
	assert.Equal(t, ".pdf", att.Path[len(att.Path)-4:])

	ok, err = vfs.Exists(ctx, f.fs, "docs/"+att.Path)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, f.ordinals(t, doc.ID))
}

func TestUploadRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.upload(t, "Handbook")

	_, err := f.svc.Upload(ctx, alice, UploadInput{
		Slug: "handbook",
		File: FileInput{Name: "x.pdf", Body: bytes.NewBufferString(pdf)},
	}, DocumentPlacement())
	var conflict *types.ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = f.svc.Upload(ctx, authz.User{}, UploadInput{
		Title: "Anonymous",
		File:  FileInput{Name: "x.pdf", Body: bytes.NewBufferString(pdf)},
	}, DocumentPlacement())
	var denied *types.AuthorizationError
	require.ErrorAs(t, err, &denied)

	_, err = f.svc.Upload(ctx, alice, UploadInput{Title: "No file"}, DocumentPlacement())
	require.ErrorAs(t, err, &conflict)
}

func TestUploadMediaPlacement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	doc, err := f.svc.Upload(ctx, alice, UploadInput{
		Title: "Scan",
		File:  FileInput{Name: "scan.png", Mime: "image/png", Body: bytes.NewBufferString("png")},
	}, MediaPlacement())
	require.NoError(t, err)

	id, _ := binder.ExtractMarker(doc.Content)
	att, err := f.repo.GetAttachment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.Mime)

	inMedia, err := vfs.Exists(ctx, f.fs, "media/"+att.Path)
	require.NoError(t, err)
	assert.True(t, inMedia)

	inDocs, err := vfs.Exists(ctx, f.fs, "docs/"+att.Path)
	require.NoError(t, err)
	assert.False(t, inDocs)
}

func TestReplaceKeepsTrailingText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	doc := f.upload(t, "Handbook")

	require.NoError(t, f.repo.SetDocumentContent(ctx, doc.ID, doc.Content+" Employee handbook"))
	f.svc.invalidate(ctx, doc.ID)

	f.clock = f.clock.Add(time.Hour)

	updated, err := f.svc.Replace(ctx, alice, doc.ID,
		FileInput{Name: "handbook-v2.pdf", Body: bytes.NewBufferString(pdf + "v2")}, "second edition", DocumentPlacement())
	require.NoError(t, err)

	id, ok := binder.ExtractMarker(updated.Content)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("<!-- MARKER %d --> Employee handbook", id), updated.Content)
	assert.Equal(t, 2, f.ordinals(t, doc.ID))

	list, err := f.svc.Revisions(ctx, alice, doc.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "second edition", list[1].Summary)

	_, err = f.svc.Replace(ctx, bob, doc.ID,
		FileInput{Name: "evil.pdf", Body: bytes.NewBufferString(pdf)}, "", DocumentPlacement())
	var denied *types.AuthorizationError
	require.ErrorAs(t, err, &denied)
}

func TestUpdateMergeWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, 0)
		doc := f.upload(t, "Policy")

		f.clock = f.clock.Add(time.Minute)
		_, err := f.svc.Update(ctx, alice, doc.ID, UpdateInput{Summary: "typo"})
		require.NoError(t, err)

		assert.Equal(t, 2, f.ordinals(t, doc.ID))
	})

	t.Run("within window", func(t *testing.T) {
		f := newFixture(t, 10*time.Minute)
		doc := f.upload(t, "Policy")

		f.clock = f.clock.Add(time.Minute)
		_, err := f.svc.Update(ctx, alice, doc.ID, UpdateInput{Summary: "typo"})
		require.NoError(t, err)

		assert.Equal(t, 1, f.ordinals(t, doc.ID))

		list, err := f.svc.Revisions(ctx, alice, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "typo", list[1].Summary)
	})

	t.Run("title change always creates", func(t *testing.T) {
		f := newFixture(t, 10*time.Minute)
		doc := f.upload(t, "Policy")

		title := "Policy 2026"
		_, err := f.svc.Update(ctx, alice, doc.ID, UpdateInput{Title: &title})
		require.NoError(t, err)

		assert.Equal(t, 2, f.ordinals(t, doc.ID))
	})
}

func TestUpdateAutosave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	doc := f.upload(t, "Draft")

	title := "Draft in progress"
	_, err := f.svc.Update(ctx, alice, doc.ID, UpdateInput{Title: &title, Autosave: true})
	require.NoError(t, err)

	stored, err := f.repo.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", stored.Title)
	assert.Equal(t, 1, f.ordinals(t, doc.ID))

	revs, err := f.repo.ListRevisions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}

func TestTrashRestorePurge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	doc := f.upload(t, "Obsolete")

	id, _ := binder.ExtractMarker(doc.Content)
	att, err := f.repo.GetAttachment(ctx, id)
	require.NoError(t, err)

	var conflict *types.ConflictError
	require.ErrorAs(t, f.svc.Purge(ctx, alice, doc.ID), &conflict)

	trashed, err := f.svc.Trash(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTrashed, trashed.Status)
	require.NotNil(t, trashed.TrashedAt)

	restored, err := f.svc.Restore(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPrivate, restored.Status)
	assert.Nil(t, restored.TrashedAt)

	_, err = f.svc.Trash(ctx, alice, doc.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Purge(ctx, alice, doc.ID))

	_, err = f.repo.GetDocument(ctx, doc.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	ok, err := vfs.Exists(ctx, f.fs, "docs/"+att.Path)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Get(ctx, alice, doc.ID)
	var missing *types.NotFoundError
	require.ErrorAs(t, err, &missing)
}

// refiller 在失效之后立即经缓存读回文档，模拟删除前的并发读取.
type refiller struct {
	reader repository.Reader
	slug   string
	attID  uint
}

func (r *refiller) Invalidate(ctx context.Context, documentID uint) error {
	_, _ = r.reader.GetDocument(ctx, documentID)
	_, _ = r.reader.GetDocumentBySlug(ctx, r.slug)
	_, _ = r.reader.GetAttachment(ctx, r.attID)
	_, _ = r.reader.ListAttachments(ctx, documentID)

	return nil
}

func TestPurgeDropsRefilledCache(t *testing.T) {
	ctx := context.Background()

	repo := repository.NewUncached(dbtest.New(t).DB)
	cached := repository.NewCached(repo, cache.NewCache(kv.NewMemoryKVWithClock(time.Now)), time.Minute)
	deps := Deps{
		Repo:   repo,
		Reader: cached,
		FS:     vfs.NewMemFS(),
		Auth:   authz.NewRoleAuthorizer(configs.AuthConfig{}),
	}
	svc := NewDocumentService(deps, configs.DocumentConfig{Root: "docs", MediaRoot: "media"})

	doc, err := svc.Upload(ctx, alice, UploadInput{
		Title:  "Obsolete",
		Status: model.StatusPrivate,
		File:   FileInput{Name: "report.pdf", Body: bytes.NewBufferString(pdf)},
	}, DocumentPlacement())
	require.NoError(t, err)

	attID, _ := binder.ExtractMarker(doc.Content)

	deps.Invalidates = []Invalidator{cached, &refiller{reader: cached, slug: doc.Slug, attID: attID}}
	svc = NewDocumentService(deps, configs.DocumentConfig{Root: "docs", MediaRoot: "media"})

	_, err = svc.Trash(ctx, alice, doc.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Purge(ctx, alice, doc.ID))

	_, err = cached.GetDocument(ctx, doc.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound), "document: %v", err)

	_, err = cached.GetDocumentBySlug(ctx, doc.Slug)
	assert.True(t, errors.Is(err, repository.ErrNotFound), "slug: %v", err)

	_, err = cached.GetAttachment(ctx, attID)
	assert.True(t, errors.Is(err, repository.ErrNotFound), "attachment: %v", err)

	atts, err := cached.ListAttachments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, atts)
}

func TestPurgeTrashed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	old := f.upload(t, "Old")
	_, err := f.svc.Trash(ctx, alice, old.ID)
	require.NoError(t, err)

	f.clock = f.clock.Add(48 * time.Hour)

	recent := f.upload(t, "Recent")
	_, err = f.svc.Trash(ctx, alice, recent.ID)
	require.NoError(t, err)

	f.upload(t, "Live")

	n, err := f.svc.PurgeTrashed(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.repo.GetDocument(ctx, old.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = f.repo.GetDocument(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestWorkflowAndVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	doc := f.upload(t, "Review me")

	updated, err := f.svc.SetWorkflow(ctx, alice, doc.ID, "legal-review")
	require.NoError(t, err)
	assert.Equal(t, "legal-review", updated.Workflow)
	assert.Equal(t, 1, f.ordinals(t, doc.ID))

	got, err := f.svc.Get(ctx, alice, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "legal-review", got.Workflow)

	_, err = f.svc.Get(ctx, bob, doc.ID)
	var denied *types.AuthorizationError
	require.ErrorAs(t, err, &denied)

	docs, err := f.svc.List(ctx, bob, repository.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, err = f.svc.List(ctx, alice, repository.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "q3-report-final", Slugify("  Q3 Report (Final) "))
	assert.Equal(t, "hello-world", Slugify("Hello---World!"))
	assert.Equal(t, "", Slugify("***"))
}
