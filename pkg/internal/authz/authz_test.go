package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/model"
)

func TestRoleAuthorizer(t *testing.T) {
	conf := configs.AuthConfig{SilentDeny: true, OverrideRole: "member", PublicRead: true}
	a := NewRoleAuthorizer(conf)

	published := &model.Document{Author: "alice", Status: model.StatusPublished}
	draft := &model.Document{Author: "alice", Status: model.StatusDraft}

	alice := User{ID: "alice", Role: RoleUser}
	bob := User{ID: "bob", Role: RoleMember}
	carol := User{ID: "carol", Role: RoleEnterprise}
	anon := User{}

	cases := []struct {
		name   string
		user   User
		action Action
		doc    *model.Document
		want   Decision
	}{
		{"anon reads published", anon, ActionRead, published, Allow},
		{"anon reads draft", anon, ActionRead, draft, DenySilent},
		{"author reads draft", alice, ActionRead, draft, Allow},
		{"member reads draft", bob, ActionRead, draft, DenySilent},
		{"enterprise reads draft", carol, ActionRead, draft, Allow},
		{"author edits", alice, ActionEdit, draft, Allow},
		{"member edits others", bob, ActionEdit, published, DenyExplicit},
		{"enterprise edits others", carol, ActionEdit, published, Allow},
		{"anon edits", anon, ActionEdit, published, DenyExplicit},
		{"user overrides", alice, ActionOverrideLock, published, DenyExplicit},
		{"member overrides", bob, ActionOverrideLock, published, Allow},
		{"anon overrides", anon, ActionOverrideLock, published, DenyExplicit},
		{"nil document", alice, ActionRead, nil, DenySilent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.Check(context.Background(), tc.user, tc.action, tc.doc))
		})
	}
}

func TestExplicitDenyWhenNotSilent(t *testing.T) {
	a := NewRoleAuthorizer(configs.AuthConfig{OverrideRole: "admin"})
	draft := &model.Document{Author: "alice", Status: model.StatusDraft}

	assert.Equal(t, DenyExplicit, a.Check(context.Background(), User{ID: "bob"}, ActionRead, draft))
	assert.Equal(t, DenyExplicit, a.Check(context.Background(), User{}, ActionRead,
		&model.Document{Status: model.StatusPublished}))
}

func TestUserContext(t *testing.T) {
	assert.True(t, UserFrom(context.Background()).Anonymous())
	assert.Equal(t, RoleUser, UserFrom(context.Background()).Role)

	ctx := WithUser(context.Background(), User{ID: "alice", Role: RoleAdmin})
	assert.Equal(t, "alice", UserFrom(ctx).ID)
	assert.Equal(t, RoleAdmin, UserFrom(ctx).Role)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleUser, ParseRole("root"))
	assert.Equal(t, "enterprise", RoleEnterprise.String())
}
