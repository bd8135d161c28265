package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort            = 8080
	DefaultHost            = "0.0.0.0"
	DefaultReloadConfig    = true
	DefaultDebug           = false
	DefaultTimeout         = 30 // 读取请求头超时，秒
	DefaultShutdownTimeout = 15 // 优雅退出等待，秒
)

// ServerConfig HTTP 服务配置.
type ServerConfig struct {
	Port            int    `mapstructure:"port"             rule:"min=1,max=65535"`
	Host            string `mapstructure:"host"             rule:"ip"`
	ReloadConfig    bool   `mapstructure:"reload_config"`
	Debug           bool   `mapstructure:"debug"`
	Timeout         int    `mapstructure:"timeout"          rule:"min=1,max=300"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" rule:"min=1,max=300"`
	// PublicHost 对外访问地址（host[:port]），Swagger 文档使用，空则取 Host:Port
	PublicHost string `mapstructure:"public_host"`
	// CORSOrigins 允许跨域的来源，空表示任意来源
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// GetTimeoutDuration 读取请求头超时.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetShutdownTimeout 优雅退出最长等待时间.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout * time.Second
	}

	return time.Duration(s.ShutdownTimeout) * time.Second
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.timeout", DefaultTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.public_host", "")
	v.SetDefault("server.cors_origins", []string{})
}
