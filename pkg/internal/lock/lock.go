package lock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/repository"
	"github.com/yeisme/docvault/pkg/internal/types"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/queue"
)

// HeldError 锁被其他用户持有.
type HeldError struct {
	DocumentID uint
	Holder     string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("document %d is being edited by %s", e.DocumentID, e.Holder)
}

// StatusCode 实现 types.HTTPError.
func (e *HeldError) StatusCode() int { return http.StatusLocked }

// NotLockedError 接管时文档没有锁.
type NotLockedError struct {
	DocumentID uint
}

func (e *NotLockedError) Error() string {
	return fmt.Sprintf("document %d is not locked", e.DocumentID)
}

// StatusCode 实现 types.HTTPError.
func (e *NotLockedError) StatusCode() int { return http.StatusConflict }

// Status 锁状态.
type Status struct {
	DocumentID uint   `json:"document_id"`
	Locked     bool   `json:"locked"`
	Holder     string `json:"holder,omitempty"`
}

// Manager 文档编辑锁.
type Manager struct {
	store  Store
	repo   repository.Reader
	authz  authz.Authorizer
	events *queue.Emitter
	ttl    time.Duration
	notify bool
}

// NewManager 创建锁管理器.
func NewManager(store Store, repo repository.Reader, az authz.Authorizer, events *queue.Emitter, conf configs.LockConfig) *Manager {
	ttl := conf.TTL
	if ttl <= 0 {
		ttl = configs.DefaultLockTTL
	}

	return &Manager{store: store, repo: repo, authz: az, events: events, ttl: ttl, notify: conf.NotifyOnOverride}
}

// TTL 锁有效期，客户端应以小于它的间隔发送心跳.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get 返回当前持有人.
func (m *Manager) Get(ctx context.Context, documentID uint) (Status, error) {
	holder, ok, err := m.store.Get(ctx, documentID)
	if err != nil {
		return Status{}, err
	}

	return Status{DocumentID: documentID, Locked: ok, Holder: holder}, nil
}

// Acquire 获取或续期锁（心跳）.其他用户持有有效锁时返回 HeldError.
func (m *Manager) Acquire(ctx context.Context, documentID uint, user authz.User) (Status, error) {
	if _, err := m.authorize(ctx, documentID, user, authz.ActionEdit); err != nil {
		return Status{}, err
	}

	holder, ok, err := m.store.Get(ctx, documentID)
	if err != nil {
		return Status{}, err
	}

	if ok && holder != user.ID {
		return Status{}, &HeldError{DocumentID: documentID, Holder: holder}
	}

	if err := m.store.Set(ctx, documentID, user.ID, m.ttl); err != nil {
		return Status{}, err
	}

	return Status{DocumentID: documentID, Locked: true, Holder: user.ID}, nil
}

// Release 释放自己持有的锁.没有锁时为空操作.
func (m *Manager) Release(ctx context.Context, documentID uint, user authz.User) error {
	holder, ok, err := m.store.Get(ctx, documentID)
	if err != nil || !ok {
		return err
	}

	if holder != user.ID {
		return &HeldError{DocumentID: documentID, Holder: holder}
	}

	return m.store.Delete(ctx, documentID)
}

// Override 由 acting 接管已存在的锁，并通知原持有人.
// 需要同时具备接管与编辑权限.
func (m *Manager) Override(ctx context.Context, documentID uint, acting authz.User) (Status, error) {
	doc, err := m.authorize(ctx, documentID, acting, authz.ActionOverrideLock)
	if err != nil {
		return Status{}, err
	}

	if m.authz.Check(ctx, acting, authz.ActionEdit, doc) != authz.Allow {
		return Status{}, &types.AuthorizationError{Message: "you are not allowed to edit this document"}
	}

	previous, ok, err := m.store.Get(ctx, documentID)
	if err != nil {
		return Status{}, err
	}

	if !ok {
		return Status{}, &NotLockedError{DocumentID: documentID}
	}

	if err := m.store.Set(ctx, documentID, acting.ID, m.ttl); err != nil {
		return Status{}, err
	}

	metrics.LockOverrides.Inc()

	nlog.Logger().Info().
		Str("event", "lock_overridden").
		Uint("doc_id", documentID).
		Str("holder", acting.ID).
		Str("previous_holder", previous).
		Msg("edit lock overridden")

	m.events.LockOverridden(ctx, queue.LockOverriddenPayload{
		Document:       queue.DocumentRef{ID: doc.ID, Slug: doc.Slug, Title: doc.Title},
		NewHolder:      acting.ID,
		PreviousHolder: previous,
		Notify:         m.notify && previous != acting.ID,
	})

	return Status{DocumentID: documentID, Locked: true, Holder: acting.ID}, nil
}

func (m *Manager) authorize(ctx context.Context, documentID uint, user authz.User, action authz.Action) (*model.Document, error) {
	doc, err := m.repo.GetDocument(ctx, documentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &types.NotFoundError{Message: "document not found"}
	}

	if err != nil {
		return nil, err
	}

	switch m.authz.Check(ctx, user, action, doc) {
	case authz.Allow:
		return doc, nil
	case authz.DenySilent:
		return nil, &types.NotFoundError{Message: "document not found"}
	default:
		return nil, &types.AuthorizationError{Message: fmt.Sprintf("you are not allowed to %s this document", verb(action))}
	}
}

func verb(a authz.Action) string {
	if a == authz.ActionOverrideLock {
		return "override the lock on"
	}

	return string(a)
}
