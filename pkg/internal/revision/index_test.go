package revision_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/revision"
	"github.com/yeisme/docvault/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
)

type fixture struct {
	repo  *repository.UncachedRepository
	index *revision.Index
	doc   *model.Document
	t0    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := repository.NewUncached(dbtest.New(t).DB)
	doc := &model.Document{Slug: "handbook", Title: "Handbook", Status: model.StatusPublished, Author: "alice"}
	require.NoError(t, repo.CreateDocument(context.Background(), doc))

	return &fixture{
		repo:  repo,
		index: revision.NewIndex(repo, cache.NewCache(kv.NewMemoryKVWithClock(time.Now)), time.Minute),
		doc:   doc,
		t0:    time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) add(t *testing.T, offset time.Duration, autosave bool, summary string) uint {
	t.Helper()

	rev := &model.Revision{
		DocumentID: f.doc.ID,
		Title:      f.doc.Title,
		Author:     "alice",
		Summary:    summary,
		Autosave:   autosave,
		CreatedAt:  f.t0.Add(offset),
	}
	require.NoError(t, f.repo.CreateRevision(context.Background(), rev))

	return rev.ID
}

func TestIndicesSkipAutosave(t *testing.T) {
	f := newFixture(t)
	r1 := f.add(t, 1*time.Minute, false, "")
	f.add(t, 2*time.Minute, true, "")
	r3 := f.add(t, 3*time.Minute, false, "")

	got, err := f.index.Indices(context.Background(), f.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int]uint{1: r1, 2: r3}, got)
}

func TestIndicesGapFree(t *testing.T) {
	f := newFixture(t)

	var want []uint

	for i := range 12 {
		id := f.add(t, time.Duration(i)*time.Minute, i%3 == 1, "")
		if i%3 != 1 {
			want = append(want, id)
		}
	}

	got, err := f.index.Indices(context.Background(), f.doc.ID)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for ordinal := 1; ordinal <= len(want); ordinal++ {
		assert.Equal(t, want[ordinal-1], got[ordinal], "ordinal %d", ordinal)
	}
}

func TestRevisionNumberAndID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r1 := f.add(t, time.Minute, false, "")
	auto := f.add(t, 2*time.Minute, true, "")
	r2 := f.add(t, 3*time.Minute, false, "")

	n, ok, err := f.index.RevisionNumber(ctx, r2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok, err = f.index.RevisionNumber(ctx, auto)
	require.NoError(t, err)
	assert.False(t, ok)

	id, ok, err := f.index.RevisionID(ctx, 1, f.doc.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, r1, id)

	for _, ordinal := range []int{0, 3, -1} {
		_, ok, err = f.index.RevisionID(ctx, ordinal, f.doc.ID)
		require.NoError(t, err)
		assert.False(t, ok, "ordinal %d", ordinal)
	}
}

func TestRevisionList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, time.Minute, false, "first draft")
	f.add(t, 2*time.Minute, true, "autosave")
	f.add(t, 3*time.Minute, false, "fixed &quot;totals&quot; &amp; tables")

	list, err := f.index.RevisionList(ctx, f.doc.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.True(t, list[0].Current())
	assert.Equal(t, f.doc.ID, list[0].DocumentID)

	assert.Equal(t, 2, list[1].Ordinal)
	assert.Equal(t, `fixed "totals" & tables`, list[1].Summary)
	assert.True(t, list[1].Modified.Equal(f.t0.Add(3*time.Minute)))

	assert.Equal(t, 1, list[2].Ordinal)
	assert.True(t, list[2].Modified.Equal(f.t0.Add(time.Minute)))
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, time.Minute, false, "")

	got, err := f.index.Indices(ctx, f.doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	list, err := f.index.RevisionList(ctx, f.doc.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	f.add(t, 2*time.Minute, false, "")

	// 失效前仍是旧结果
	got, err = f.index.Indices(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, f.index.Invalidate(ctx, f.doc.ID))

	got, err = f.index.Indices(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	list, err = f.index.RevisionList(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

// pausingReader 第一次 ListRevisions 读完后停住，直到 release 关闭.
type pausingReader struct {
	repository.Reader
	paused  atomic.Bool
	loaded  chan struct{}
	release chan struct{}
}

func (r *pausingReader) ListRevisions(ctx context.Context, documentID uint) ([]model.Revision, error) {
	revs, err := r.Reader.ListRevisions(ctx, documentID)
	if r.paused.CompareAndSwap(false, true) {
		close(r.loaded)
		<-r.release
	}

	return revs, err
}

func TestInvalidateDuringFill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, time.Minute, false, "")

	reader := &pausingReader{Reader: f.repo, loaded: make(chan struct{}), release: make(chan struct{})}
	index := revision.NewIndex(reader, cache.NewCache(kv.NewMemoryKVWithClock(time.Now)), time.Minute)

	var (
		wg    sync.WaitGroup
		stale map[int]uint
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		stale, _ = index.Indices(ctx, f.doc.ID)
	}()

	<-reader.loaded

	f.add(t, 2*time.Minute, false, "")
	require.NoError(t, index.Invalidate(ctx, f.doc.ID))

	got, err := index.Indices(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	close(reader.release)
	wg.Wait()
	assert.Len(t, stale, 1)

	// 失效前开始的回源不会把旧结果写回缓存
	got, err = index.Indices(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestIndicesExpire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, time.Minute, false, "")

	now := time.Now()
	store := kv.NewMemoryKVWithClock(func() time.Time { return now })
	index := revision.NewIndex(f.repo, cache.NewCache(store), time.Minute)

	got, err := index.Indices(ctx, f.doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	f.add(t, 2*time.Minute, false, "")
	now = now.Add(2 * time.Minute)

	ok, err := store.Exists(ctx, cache.Key(revision.NSIndices, f.doc.ID))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = index.Indices(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
