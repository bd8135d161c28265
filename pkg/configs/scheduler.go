package configs

import (
	"time"

	"github.com/spf13/viper"
)

// SchedulerConfig 定时任务配置.
type SchedulerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ValidateCron   string        `mapstructure:"validate_cron"    rule:"omitempty,cron"` // 结构校验巡检，空字符串表示禁用
	TrashPurgeCron string        `mapstructure:"trash_purge_cron" rule:"omitempty,cron"` // 回收站清理，空字符串表示禁用
	TrashRetention time.Duration `mapstructure:"trash_retention"  rule:"min=0"`
	SweepUser      string        `mapstructure:"sweep_user"` // 巡检时使用的身份
}

func (c *SchedulerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.validate_cron", "0 3 * * *")
	v.SetDefault("scheduler.trash_purge_cron", "30 3 * * *")
	v.SetDefault("scheduler.trash_retention", 30*24*time.Hour)
	v.SetDefault("scheduler.sweep_user", "system")
}
