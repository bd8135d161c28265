package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MetricsConfig Prometheus 指标，挂在主服务的 Path 上.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"            rule:"startswith=/"`
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"`
	Pprof          bool   `mapstructure:"pprof"`
	// DBRefresh GORM 连接池指标的刷新间隔
	DBRefresh time.Duration `mapstructure:"db_refresh" rule:"min=1s"`
	// ConstLabels 附加到本实例所有指标上，多实例时区分来源
	ConstLabels map[string]string `mapstructure:"const_labels"`
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.db_refresh", "15s")
	v.SetDefault("metrics.const_labels", map[string]string{})
}
