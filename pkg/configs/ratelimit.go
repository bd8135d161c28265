package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 50.0
	DefaultRateLimitBurst   = 100
	DefaultRateLimitKey     = "user"
	DefaultRateLimitIdleTTL = 10 * time.Minute
)

// RateLimitConfig 请求限流.JSON 接口与文件下载分别计数.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"`
	Burst   int     `mapstructure:"burst" rule:"min=0"`
	// Key 限流维度：global、ip、user（已登录用户，匿名退回 IP）、header:Header-Name
	Key string `mapstructure:"key"`
	// DownloadRPS 下载路由的速率，<=0 时沿用 RPS
	DownloadRPS   float64 `mapstructure:"download_rps"   rule:"min=0"`
	DownloadBurst int     `mapstructure:"download_burst" rule:"min=0"`
	// IdleTTL 闲置多久的限流器被回收
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

// Download 下载路由实际使用的速率与突发容量.
func (c RateLimitConfig) Download() (float64, int) {
	rps, burst := c.DownloadRPS, c.DownloadBurst
	if rps <= 0 {
		rps = c.RPS
	}

	if burst <= 0 {
		burst = c.Burst
	}

	return rps, burst
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.download_rps", 0)
	v.SetDefault("rate_limit.download_burst", 0)
	v.SetDefault("rate_limit.idle_ttl", DefaultRateLimitIdleTTL)
}
