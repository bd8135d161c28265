package configs

import (
	"time"

	"github.com/spf13/viper"
)

// FSBackend 文档文件存储后端.
type FSBackend string

const (
	FSBackendLocal  FSBackend = "local"  // 本地磁盘（afero OsFs）
	FSBackendMemory FSBackend = "memory" // 内存文件系统，仅用于测试与演示
	FSBackendS3     FSBackend = "s3"     // MinIO/S3 对象存储
)

const (
	DefaultDocumentRoot        = "data/documents" // 文档存储根目录
	DefaultMediaRoot           = "data/uploads"   // 默认媒体根目录
	DefaultDisposition         = "inline"         // 默认 Content-Disposition
	DefaultServeBlockSize      = 0                // 0 表示一次性写出
	DefaultRevisionMergeWindow = 0 * time.Second  // 0 表示从不合并修订
	DefaultCacheTTL            = 10 * time.Minute // 文档与修订索引缓存有效期
)

// DocumentConfig 文档存储、修订与下载相关配置.
type DocumentConfig struct {
	Backend             FSBackend     `mapstructure:"backend"               rule:"oneof=local memory s3"`
	Root                string        `mapstructure:"root"                  rule:"storeroot"`
	MediaRoot           string        `mapstructure:"media_root"            rule:"storeroot"`
	RevisionMergeWindow time.Duration `mapstructure:"revision_merge_window" rule:"min=0"`
	Disposition         string        `mapstructure:"disposition"           rule:"oneof=inline attachment"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"             rule:"min=0"`
	Serve               ServeConfig   `mapstructure:"serve"`
}

// ServeConfig 文件下载行为.
type ServeConfig struct {
	BlockSize int  `mapstructure:"block_size" rule:"min=0"` // 未压缩传输时的分块大小
	Chunked   bool `mapstructure:"chunked"`                 // 强制按分块传输处理（压缩时省略 Content-Length）
	Compress  bool `mapstructure:"compress"`                // 是否按 Accept-Encoding 压缩
}

func (c *DocumentConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("document.backend", FSBackendLocal)
	v.SetDefault("document.root", DefaultDocumentRoot)
	v.SetDefault("document.media_root", DefaultMediaRoot)
	v.SetDefault("document.revision_merge_window", DefaultRevisionMergeWindow)
	v.SetDefault("document.disposition", DefaultDisposition)
	v.SetDefault("document.cache_ttl", DefaultCacheTTL)
	v.SetDefault("document.serve.block_size", DefaultServeBlockSize)
	v.SetDefault("document.serve.chunked", false)
	v.SetDefault("document.serve.compress", true)
}
