package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/authz"
)

const userKey = "user"

// AuthMiddleware 基于 oauth2-proxy 注入的请求头识别请求方，并把 authz.User 注入请求上下文.
//   - 身份取自 X-Auth-Request-User / X-Auth-Request-Email / X-Forwarded-Email
//   - 角色取自 X-Role，缺省为 user
//   - 开发模式可用 ?user= 兜底（由 configs.auth.dev_allow_query 控制）
//
// 未携带身份的请求以匿名用户继续，是否允许访问由授权器决定.关闭认证时总是接受 ?user=.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := authz.User{Role: authz.RoleUser}

		if !isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			user = identify(c, conf)
		}

		c.Set(userKey, user)
		c.Request = c.Request.WithContext(authz.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// RequireUser 要求已登录，匿名请求返回 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUser(c).Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		c.Next()
	}
}

// GetUser 从 gin.Context 获取当前请求方.
func GetUser(c *gin.Context) authz.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(authz.User); ok {
			return u
		}
	}

	return authz.UserFrom(c.Request.Context())
}

func identify(c *gin.Context, conf configs.AuthConfig) authz.User {
	email := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email"))
	if email == "" {
		email = strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
	}

	id := strings.TrimSpace(c.GetHeader("X-Auth-Request-User"))
	if id == "" {
		id = email
	}

	if id == "" && (conf.DevAllowQuery || !conf.Enabled) {
		id = strings.TrimSpace(c.Query("user"))
	}

	if id == "" {
		return authz.User{Role: authz.RoleUser}
	}

	return authz.User{ID: id, Email: email, Role: authz.ParseRole(c.GetHeader("X-Role"))}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
