package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLockTTL = 150 * time.Second // 心跳锁有效期
)

// LockConfig 文档编辑锁配置.
type LockConfig struct {
	TTL              time.Duration `mapstructure:"ttl"                rule:"min=1s"`
	NotifyOnOverride bool          `mapstructure:"notify_on_override"` // 锁被接管时邮件通知原持有者
}

func (c *LockConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("lock.ttl", DefaultLockTTL)
	v.SetDefault("lock.notify_on_override", true)
}
