package configs

import "github.com/spf13/viper"

// AuthConfig 控制统一身份认证（优先支持 oauth2-proxy 注入的请求头）与默认授权策略。
type AuthConfig struct {
	Enabled       bool     `mapstructure:"enabled"`         // 开启认证校验
	SkipPaths     []string `mapstructure:"skip_paths"`      // 跳过认证的路径前缀（如 /metrics、/api/v1/health）
	DevAllowQuery bool     `mapstructure:"dev_allow_query"` // 开发模式允许用 ?user= 便于本地调试
	// SilentDeny 为 true 时，无读取权限的下载请求返回 404 而不是 403，避免暴露文档存在性
	SilentDeny bool `mapstructure:"silent_deny"`
	// OverrideRole 允许接管他人编辑锁的最低角色
	OverrideRole string `mapstructure:"override_role" rule:"oneof=user member enterprise admin"`
	// PublicRead 已发布文档是否允许匿名下载
	PublicRead bool `mapstructure:"public_read"`
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.dev_allow_query", true)
	v.SetDefault("auth.silent_deny", true)
	v.SetDefault("auth.override_role", "member")
	v.SetDefault("auth.public_read", true)
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/v1/health",
		"/swagger",
	})
}
