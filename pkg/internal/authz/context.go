package authz

import "context"

type userKey struct{}

// WithUser 将请求方身份写入 context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom 读取请求方身份，缺省为匿名 user 角色.
func UserFrom(ctx context.Context) User {
	if u, ok := ctx.Value(userKey{}).(User); ok {
		return u
	}

	return User{Role: RoleUser}
}
