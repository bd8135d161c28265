package configs

import (
	"github.com/spf13/viper"
)

// KVConfig 缓存、修订索引与编辑锁共用的键值存储.
type KVConfig struct {
	Type       string             `mapstructure:"type"       rule:"oneof=memory redis nats groupcache"`
	Redis      RedisKVConfig      `mapstructure:"redis"`
	NATS       NATSKVConfig       `mapstructure:"nats"`
	Groupcache GroupcacheKVConfig `mapstructure:"groupcache"`
}

// RedisKVConfig Redis 后端.多个实例共用一个 Redis 库时用 Prefix 隔开.
type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"      rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"        rule:"min=0,max=15"`
	Prefix   string `mapstructure:"prefix"    rule:"omitempty,excludesall=*?[]"`
	PoolSize int    `mapstructure:"pool_size" rule:"min=0,max=1000"` // 0 使用 go-redis 默认值
	// ScanCount Keys 每轮 SCAN 的建议条数
	ScanCount int64 `mapstructure:"scan_count" rule:"min=10,max=10000"`
}

// NATSKVConfig NATS JetStream KV 后端.
type NATSKVConfig struct {
	URL      string `mapstructure:"url"       rule:"hostname_port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"    rule:"required,excludesall=.*>"`
	Storage  string `mapstructure:"storage"   rule:"oneof=file memory"`
	Replicas int    `mapstructure:"replicas"  rule:"min=1,max=5"`
	MaxBytes int64  `mapstructure:"max_bytes" rule:"min=-1"`
}

// GroupcacheKVConfig Groupcache 后端.
type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"        rule:"required"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=1048576"` // 最小1MB
	Peers      []string `mapstructure:"peers"`
	Self       string   `mapstructure:"self"`
}

func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", "memory")

	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
	v.SetDefault("kv.redis.prefix", "docvault:")
	v.SetDefault("kv.redis.pool_size", 0)
	v.SetDefault("kv.redis.scan_count", 200)

	v.SetDefault("kv.nats.url", "localhost:4222")
	v.SetDefault("kv.nats.user", "")
	v.SetDefault("kv.nats.password", "")
	v.SetDefault("kv.nats.bucket", "docvault-kv")
	v.SetDefault("kv.nats.storage", "file")
	v.SetDefault("kv.nats.replicas", 1)
	v.SetDefault("kv.nats.max_bytes", -1)

	v.SetDefault("kv.groupcache.name", "docvault-cache")
	v.SetDefault("kv.groupcache.cache_bytes", 512*1024*1024)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "http://localhost:8080")
}
