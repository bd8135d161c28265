package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/authz"
)

// RequireMinRole 要求最小角色，不满足则返回 403.
func RequireMinRole(minRole authz.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := GetUser(c)
		if u.Anonymous() || u.Role < minRole { // 使用枚举的自然顺序进行最小角色判断
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: insufficient role"})

			return
		}

		c.Next()
	}
}
