package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/lock"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/storage/db/dbtest"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/queue"
)

var (
	alice = authz.User{ID: "alice", Role: authz.RoleUser}
	bob   = authz.User{ID: "bob", Role: authz.RoleMember}
	carol = authz.User{ID: "carol", Role: authz.RoleEnterprise}
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fixture struct {
	mgr    *lock.Manager
	doc    *model.Document
	clock  *clock
	events <-chan *message.Message
}

func newFixture(t *testing.T, notify bool) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	repo := repository.NewUncached(dbtest.New(t).DB)
	doc := &model.Document{Slug: "handbook", Title: "Handbook", Status: model.StatusPublished, Author: "alice"}
	require.NoError(t, repo.CreateDocument(ctx, doc))

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	events, err := pubsub.Subscribe(ctx, queue.TopicLockOverridden)
	require.NoError(t, err)

	clk := &clock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	emitter := queue.NewEmitter(pubsub, configs.EventsConfig{Enabled: true, Lock: configs.LockEventsConfig{Overridden: true}})
	az := authz.NewRoleAuthorizer(configs.AuthConfig{OverrideRole: "member", PublicRead: true})

	mgr := lock.NewManager(lock.NewKVStore(kv.NewMemoryKVWithClock(clk.Now)), repo, az, emitter,
		configs.LockConfig{TTL: time.Minute, NotifyOnOverride: notify})

	return &fixture{mgr: mgr, doc: doc, clock: clk, events: events}
}

func TestAcquireHeartbeatAndExpiry(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	st, err := f.mgr.Acquire(ctx, f.doc.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", st.Holder)

	_, err = f.mgr.Acquire(ctx, f.doc.ID, carol)
	var held *lock.HeldError
	require.ErrorAs(t, err, &held)
	assert.Equal(t, "alice", held.Holder)
	assert.Equal(t, 423, types.StatusOf(err))

	// 心跳续期
	f.clock.Advance(50 * time.Second)
	_, err = f.mgr.Acquire(ctx, f.doc.ID, alice)
	require.NoError(t, err)

	f.clock.Advance(50 * time.Second)
	st, err = f.mgr.Get(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.True(t, st.Locked)

	// 过期后其他人可以获取
	f.clock.Advance(2 * time.Minute)
	st, err = f.mgr.Get(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.False(t, st.Locked)

	_, err = f.mgr.Acquire(ctx, f.doc.ID, carol)
	require.NoError(t, err)
}

func TestKVStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	store := lock.NewKVStore(kv.NewMemoryKVWithClock(clk.Now))

	require.NoError(t, store.Set(ctx, 1, "alice", time.Minute))

	holder, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", holder)

	clk.Advance(2 * time.Minute)

	_, ok, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// 过期后再次读取与写入都正常
	_, ok, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, 1, "carol", time.Minute))

	holder, ok, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "carol", holder)
}

func TestAcquireRequiresEdit(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.mgr.Acquire(context.Background(), f.doc.ID, bob)
	assert.Equal(t, 403, types.StatusOf(err))
}

func TestRelease(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.mgr.Release(ctx, f.doc.ID, alice))

	_, err := f.mgr.Acquire(ctx, f.doc.ID, alice)
	require.NoError(t, err)

	var held *lock.HeldError
	require.ErrorAs(t, f.mgr.Release(ctx, f.doc.ID, carol), &held)

	require.NoError(t, f.mgr.Release(ctx, f.doc.ID, alice))

	st, err := f.mgr.Get(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.False(t, st.Locked)
}

func TestOverride(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.mgr.Override(ctx, f.doc.ID, carol)
	var notLocked *lock.NotLockedError
	require.ErrorAs(t, err, &notLocked)

	_, err = f.mgr.Acquire(ctx, f.doc.ID, alice)
	require.NoError(t, err)

	// bob 有接管权限但不能编辑
	_, err = f.mgr.Override(ctx, f.doc.ID, bob)
	assert.Equal(t, 403, types.StatusOf(err))

	// 角色不足以接管
	_, err = f.mgr.Override(ctx, f.doc.ID, authz.User{ID: "dave", Role: authz.RoleUser})
	assert.Equal(t, 403, types.StatusOf(err))

	st, err := f.mgr.Override(ctx, f.doc.ID, carol)
	require.NoError(t, err)
	assert.Equal(t, "carol", st.Holder)

	st, err = f.mgr.Get(ctx, f.doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", st.Holder)

	select {
	case msg := <-f.events:
		msg.Ack()

		env, err := queue.ParseLockOverridden(msg)
		require.NoError(t, err)
		assert.Equal(t, f.doc.ID, env.Payload.Document.ID)
		assert.Equal(t, "carol", env.Payload.NewHolder)
		assert.Equal(t, "alice", env.Payload.PreviousHolder)
		assert.True(t, env.Payload.Notify)
	case <-time.After(2 * time.Second):
		t.Fatal("override event not published")
	}
}

func TestOverrideNotifySuppressed(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.mgr.Acquire(ctx, f.doc.ID, alice)
	require.NoError(t, err)

	_, err = f.mgr.Override(ctx, f.doc.ID, carol)
	require.NoError(t, err)

	select {
	case msg := <-f.events:
		msg.Ack()

		env, err := queue.ParseLockOverridden(msg)
		require.NoError(t, err)
		assert.False(t, env.Payload.Notify)
	case <-time.After(2 * time.Second):
		t.Fatal("override event not published")
	}
}

func TestOverrideUnknownDocument(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.mgr.Override(context.Background(), 999, carol)
	assert.Equal(t, 404, types.StatusOf(err))
}
