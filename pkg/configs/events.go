package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool                 `mapstructure:"enabled"` // 总开关
	Document DocumentEventsConfig `mapstructure:"document"`
	Lock     LockEventsConfig     `mapstructure:"lock"`
}

// DocumentEventsConfig 文档领域的事件开关。
type DocumentEventsConfig struct {
	Saved    bool `mapstructure:"saved"`
	Repaired bool `mapstructure:"repaired"`
	Served   bool `mapstructure:"served"`
}

// LockEventsConfig 编辑锁领域的事件开关。
type LockEventsConfig struct {
	Overridden bool `mapstructure:"overridden"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.document.saved", true)
	v.SetDefault("events.document.repaired", true)
	v.SetDefault("events.document.served", false) // 下载事件量可能很大，默认关闭

	// 接管通知与审计依赖该事件，默认开启
	v.SetDefault("events.lock.overridden", true)
}
