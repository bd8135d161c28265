// Package authz 提供按 (用户, 动作, 文档) 做出的授权判断.
//
// 文件服务和锁管理只消费判断结果，策略本身集中在 Authorizer 的实现中.
package authz

import (
	"context"
	"strings"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/model"
)

// Action 授权动作.
type Action string

const (
	ActionRead         Action = "read"
	ActionEdit         Action = "edit"
	ActionOverrideLock Action = "override_lock"
)

// Decision 授权结果.
type Decision int

const (
	// Allow 允许.
	Allow Decision = iota
	// DenySilent 拒绝并隐藏文档存在性，对外表现为 404.
	DenySilent
	// DenyExplicit 明确拒绝，对外表现为 403.
	DenyExplicit
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenySilent:
		return "deny-silent"
	default:
		return "deny-explicit"
	}
}

// Role 表示请求方的角色，数值越大权限越高.
type Role int

const (
	RoleUser Role = iota + 1
	RoleMember
	RoleEnterprise
	RoleAdmin
)

// String 返回角色的字符串表示.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleEnterprise:
		return "enterprise"
	case RoleMember:
		return "member"
	case RoleUser:
		fallthrough
	default:
		return "user"
	}
}

// ParseRole 从字符串解析角色，未知值降级为 user.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "enterprise":
		return RoleEnterprise
	case "member":
		return RoleMember
	case "user":
		fallthrough
	default:
		return RoleUser
	}
}

// User 请求方身份.ID 为空表示匿名.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// Anonymous 报告是否为匿名用户.
func (u User) Anonymous() bool {
	return u.ID == ""
}

// Authorizer 授权判断.
type Authorizer interface {
	Check(ctx context.Context, user User, action Action, doc *model.Document) Decision
}

// AuthorizerFunc 适配普通函数.
type AuthorizerFunc func(ctx context.Context, user User, action Action, doc *model.Document) Decision

// Check 实现 Authorizer.
func (f AuthorizerFunc) Check(ctx context.Context, user User, action Action, doc *model.Document) Decision {
	return f(ctx, user, action, doc)
}

// RoleAuthorizer 基于作者身份与角色的默认策略.
//   - 作者与 enterprise 以上角色可编辑
//   - 已发布文档对登录用户可读，public_read 开启时匿名也可读
//   - 接管他人编辑锁需要 override_role 及以上角色
type RoleAuthorizer struct {
	conf configs.AuthConfig
}

// NewRoleAuthorizer 创建默认授权器.
func NewRoleAuthorizer(conf configs.AuthConfig) *RoleAuthorizer {
	return &RoleAuthorizer{conf: conf}
}

// Check 实现 Authorizer.
func (a *RoleAuthorizer) Check(_ context.Context, user User, action Action, doc *model.Document) Decision {
	if doc == nil {
		return a.denyRead()
	}

	switch action {
	case ActionRead:
		if canEdit(user, doc) {
			return Allow
		}

		if doc.Status == model.StatusPublished && (a.conf.PublicRead || !user.Anonymous()) {
			return Allow
		}

		return a.denyRead()
	case ActionEdit:
		if canEdit(user, doc) {
			return Allow
		}

		return DenyExplicit
	case ActionOverrideLock:
		if !user.Anonymous() && user.Role >= ParseRole(a.conf.OverrideRole) {
			return Allow
		}

		return DenyExplicit
	default:
		return DenyExplicit
	}
}

func (a *RoleAuthorizer) denyRead() Decision {
	if a.conf.SilentDeny {
		return DenySilent
	}

	return DenyExplicit
}

func canEdit(user User, doc *model.Document) bool {
	if user.Anonymous() {
		return false
	}

	return user.ID == doc.Author || user.Role >= RoleEnterprise
}
