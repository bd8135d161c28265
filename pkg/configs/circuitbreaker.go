package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig 熔断.JSON 接口与文件下载各用一个熔断器，5xx 记为失败.
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FailureRate 统计窗口内失败率达到即打开，样本数不足 MinRequests 时不判断
	FailureRate float64 `mapstructure:"failure_rate" rule:"min=0,max=1"`
	MinRequests uint32  `mapstructure:"min_requests"`
	// Interval 关闭状态下清零计数的周期，0 不清零
	Interval time.Duration `mapstructure:"interval" rule:"min=0"`
	// Timeout 打开后转入半开前的等待，也作为 Retry-After
	Timeout           time.Duration `mapstructure:"timeout"              rule:"min=1s"`
	MaxRequestsInHalf uint32        `mapstructure:"max_requests_in_half" rule:"min=1"`
	// SkipPaths 不经过熔断的路径前缀，健康检查需要如实反映存储故障
	SkipPaths []string `mapstructure:"skip_paths"`
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_rate", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 20)
	v.SetDefault("circuit_breaker.interval", "1m")
	v.SetDefault("circuit_breaker.timeout", "30s")
	v.SetDefault("circuit_breaker.max_requests_in_half", 5)
	v.SetDefault("circuit_breaker.skip_paths", []string{"/api/v1/health"})
}
