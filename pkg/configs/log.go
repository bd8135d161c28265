package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLogEnableFile  = true
	DefaultLogFilePath    = "logs/docvault.log"
	DefaultLogMaxSize     = 100 // MB
	DefaultLogMaxBackups  = 7
	DefaultLogMaxAge      = 28 // 天
	DefaultLogCompress    = true
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultLogSlowRequest = 2 * time.Second
)

// LogConfig 日志.文件输出总是 JSON，经 lumberjack 轮转.
type LogConfig struct {
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size_mb"  rule:"min=0"`
	MaxBackups int    `mapstructure:"max_backups"  rule:"min=0"`
	MaxAge     int    `mapstructure:"max_age_days" rule:"min=0"`
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"        rule:"omitempty,oneof=trace debug info warn error"`
	// Format 标准错误输出的格式：console（人读）或 json（交给日志采集）
	Format string `mapstructure:"format" rule:"omitempty,oneof=console json"`
	// SlowRequest 超过该耗时的请求以 warn 级别记录，0 表示不区分
	SlowRequest time.Duration `mapstructure:"slow_request"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.slow_request", DefaultLogSlowRequest)
}
